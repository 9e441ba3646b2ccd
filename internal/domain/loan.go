package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "pending"
	LoanStatusQueued   LoanStatus = "queued"
	LoanStatusActive   LoanStatus = "active"
	LoanStatusPaid     LoanStatus = "paid"
	LoanStatusRejected LoanStatus = "rejected"

	// LoanStatusReevaluation is accepted by approval for rows written by older
	// tooling. Nothing in this module produces it.
	LoanStatusReevaluation LoanStatus = "reevaluation"
)

// CommittedLoanStatuses are the statuses whose principal counts toward pool
// utilization.
var CommittedLoanStatuses = []LoanStatus{LoanStatusPending, LoanStatusActive}

func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusPending, LoanStatusQueued, LoanStatusActive, LoanStatusPaid, LoanStatusRejected, LoanStatusReevaluation:
		return true
	}
	return false
}

func (s LoanStatus) Committed() bool {
	return slices.Contains(CommittedLoanStatuses, s)
}

func (s LoanStatus) Approvable() bool {
	return s == LoanStatusPending || s == LoanStatusReevaluation
}

func (s LoanStatus) Rejectable() bool {
	return s == LoanStatusPending || s == LoanStatusQueued
}

func (s LoanStatus) Deletable() bool {
	return s == LoanStatusPending || s == LoanStatusQueued || s == LoanStatusRejected
}

// Payable admits pending loans as well as active ones, so a borrower may
// repay before approval.
func (s LoanStatus) Payable() bool {
	return s == LoanStatusActive || s == LoanStatusPending
}

type Loan struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	Principal       decimal.Decimal
	AnnualRate      decimal.Decimal
	TermMonths      int
	PaidAmount      decimal.Decimal
	AccruedInterest decimal.Decimal
	Status          LoanStatus
	QueuePosition   *int64
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ApprovedAt      *time.Time
	PaidAt          *time.Time
	LastAccrualAt   time.Time
}

// TotalWithInterest is the contractual amount: principal grown by one year of
// the annual rate.
func (l *Loan) TotalWithInterest() decimal.Decimal {
	return l.Principal.Mul(decimal.NewFromInt(1).Add(l.AnnualRate))
}

// RemainingBalance is the base on which daily interest accrues.
func (l *Loan) RemainingBalance() decimal.Decimal {
	return l.TotalWithInterest().Sub(l.PaidAmount).Sub(l.AccruedInterest)
}
