package lending

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/finance"
	"github.com/josh-kwaku/capital-pool/internal/logging"
	"github.com/josh-kwaku/capital-pool/internal/metrics"
)

// CreateInvestment moves amount from the owner's wallet into the pool.
func (s *Service) CreateInvestment(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, annualRate *decimal.Decimal) (*domain.Investment, error) {
	log := logging.FromContext(ctx)

	rate := s.config.DefaultInvestmentRate
	if annualRate != nil {
		rate = *annualRate
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, fmt.Errorf("CreateInvestment: %w", err)
	}
	if err := domain.ValidateRate(rate); err != nil {
		return nil, fmt.Errorf("CreateInvestment: %w", err)
	}

	tx, err := s.beginPoolTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("CreateInvestment: %w", err)
	}
	defer tx.Rollback()

	wallet, err := s.wallets.GetByOwnerForUpdate(ctx, tx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("CreateInvestment: %w", err)
	}
	if err := wallet.Debit(amount); err != nil {
		return nil, fmt.Errorf("CreateInvestment: %w", err)
	}

	now := s.clock.Now()
	if err := s.wallets.UpdateBalance(ctx, tx, wallet.ID, wallet.Balance, wallet.Version, now); err != nil {
		return nil, fmt.Errorf("CreateInvestment: %w", err)
	}

	inv := &domain.Investment{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Principal:     amount,
		AccruedYield:  decimal.Zero,
		AnnualRate:    rate,
		Status:        domain.InvestmentStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastAccrualAt: now,
	}
	if err := s.investments.Create(ctx, tx, inv); err != nil {
		return nil, fmt.Errorf("CreateInvestment: %w", err)
	}

	entry := domain.NewLedgerTransaction(wallet.ID, domain.TransactionKindInvestment, amount, now).ForInvestment(inv.ID)
	if err := s.recordLedger(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("CreateInvestment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CreateInvestment: commit: %w", err)
	}

	metrics.RecordTransaction(domain.TransactionKindInvestment)
	log.Info("investment created",
		"investment_id", inv.ID,
		"wallet_id", wallet.ID,
		"amount", amount,
		"annual_rate", rate,
	)
	s.capacityChanged(ctx, "investment created")
	return inv, nil
}

// RedeemInvestment pays principal plus accrued yield back to the owner.
func (s *Service) RedeemInvestment(ctx context.Context, id uuid.UUID) (*domain.Investment, error) {
	tx, err := s.beginPoolTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("RedeemInvestment: %w", err)
	}
	defer tx.Rollback()

	inv, err := s.investments.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("RedeemInvestment: %w", err)
	}
	if inv.Status != domain.InvestmentStatusActive {
		return nil, fmt.Errorf("RedeemInvestment: %w", domain.ErrInvestmentRedeemed)
	}

	wallet, err := s.wallets.GetByOwnerForUpdate(ctx, tx, inv.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("RedeemInvestment: %w", err)
	}

	payout := inv.RedemptionValue()
	wallet.Credit(payout)
	now := s.clock.Now()
	if err := s.wallets.UpdateBalance(ctx, tx, wallet.ID, wallet.Balance, wallet.Version, now); err != nil {
		return nil, fmt.Errorf("RedeemInvestment: %w", err)
	}
	if err := s.investments.MarkRedeemed(ctx, tx, inv.ID, now); err != nil {
		return nil, fmt.Errorf("RedeemInvestment: %w", err)
	}

	entry := domain.NewLedgerTransaction(wallet.ID, domain.TransactionKindInvestmentRedemption, payout, now).ForInvestment(inv.ID)
	if err := s.recordLedger(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("RedeemInvestment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("RedeemInvestment: commit: %w", err)
	}

	inv.Status = domain.InvestmentStatusRedeemed
	inv.RedeemedAt = &now
	inv.UpdatedAt = now

	metrics.RecordTransaction(domain.TransactionKindInvestmentRedemption)
	logging.FromContext(ctx).Info("investment redeemed",
		"investment_id", inv.ID,
		"wallet_id", wallet.ID,
		"principal", inv.Principal,
		"yield", inv.AccruedYield,
		"amount", payout,
	)
	s.capacityChanged(ctx, "investment redeemed")
	return inv, nil
}

// CancelInvestment refunds the principal and removes the investment. Accrued
// yield is forfeited.
func (s *Service) CancelInvestment(ctx context.Context, id uuid.UUID) error {
	tx, err := s.beginPoolTx(ctx)
	if err != nil {
		return fmt.Errorf("CancelInvestment: %w", err)
	}
	defer tx.Rollback()

	inv, err := s.investments.GetForUpdate(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("CancelInvestment: %w", err)
	}
	if inv.Status != domain.InvestmentStatusActive {
		return fmt.Errorf("CancelInvestment: %w", domain.ErrInvestmentRedeemed)
	}

	wallet, err := s.wallets.GetByOwnerForUpdate(ctx, tx, inv.OwnerID)
	if err != nil {
		return fmt.Errorf("CancelInvestment: %w", err)
	}
	wallet.Credit(inv.Principal)
	now := s.clock.Now()
	if err := s.wallets.UpdateBalance(ctx, tx, wallet.ID, wallet.Balance, wallet.Version, now); err != nil {
		return fmt.Errorf("CancelInvestment: %w", err)
	}
	if err := s.investments.Delete(ctx, tx, inv.ID); err != nil {
		return fmt.Errorf("CancelInvestment: %w", err)
	}

	entry := domain.NewLedgerTransaction(wallet.ID, domain.TransactionKindInvestmentCancellation, inv.Principal, now).ForInvestment(inv.ID)
	if err := s.recordLedger(ctx, tx, entry); err != nil {
		return fmt.Errorf("CancelInvestment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("CancelInvestment: commit: %w", err)
	}

	metrics.RecordTransaction(domain.TransactionKindInvestmentCancellation)
	logging.FromContext(ctx).Info("investment cancelled",
		"investment_id", inv.ID,
		"wallet_id", wallet.ID,
		"amount", inv.Principal,
		"forfeited_yield", inv.AccruedYield,
	)
	s.capacityChanged(ctx, "investment cancelled")
	return nil
}

func (s *Service) GetInvestment(ctx context.Context, id uuid.UUID) (*domain.Investment, error) {
	inv, err := s.investments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetInvestment: %w", err)
	}
	return inv, nil
}

func (s *Service) ListInvestments(ctx context.Context, ownerID *uuid.UUID) ([]domain.Investment, error) {
	invs, err := s.investments.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListInvestments: %w", err)
	}
	return invs, nil
}

// ProjectInvestment previews the investment's growth over days. Active
// investments compound monthly; a redeemed one no longer compounds and is
// projected with simple interest.
func (s *Service) ProjectInvestment(ctx context.Context, id uuid.UUID, days int) (*finance.InvestmentPreview, error) {
	inv, err := s.investments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ProjectInvestment: %w", err)
	}

	req := finance.InvestmentPreviewRequest{
		Principal:   inv.Principal,
		AnnualRate:  inv.AnnualRate,
		Days:        days,
		Interest:    finance.InterestCompound,
		Compounding: finance.CompoundingMonthly,
	}
	if inv.Status == domain.InvestmentStatusRedeemed {
		req.Interest = finance.InterestSimple
	}

	preview, err := finance.PreviewInvestment(req)
	if err != nil {
		return nil, fmt.Errorf("ProjectInvestment: %w", err)
	}
	return preview, nil
}
