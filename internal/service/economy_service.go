package service

import (
	"context"
	"errors"
	"log/slog"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/logger"
	"roleplay_bot/internal/metrics"
)

// переэкспорт, чтобы вызывающим не лезть в domain
var (
	ErrInsufficientFunds = domain.ErrInsufficientFunds
	ErrInvalidAmount     = domain.ErrInvalidAmount
)

// EconomyService деньги персонажей по серверам
type EconomyService struct {
	balances BalanceStore
	audit    *AuditService
	events   Publisher
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewEconomyService(balances BalanceStore, audit *AuditService, events Publisher, m *metrics.Metrics) *EconomyService {
	if events == nil {
		events = NopPublisher()
	}
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &EconomyService{
		balances: balances,
		audit:    audit,
		events:   events,
		metrics:  m,
		log:      logger.With("component", "economy"),
	}
}

// возвращает баланс, создавая нулевой при первом обращении
func (s *EconomyService) Get(ctx context.Context, characterID, serverID int64) (int64, error) {
	return s.balances.GetOrCreate(ctx, characterID, serverID)
}

// начисляет amount > 0
func (s *EconomyService) Add(ctx context.Context, actorID, characterID, serverID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	balance, err := s.balances.Add(ctx, characterID, serverID, amount)
	if err != nil {
		return 0, err
	}
	s.audit.LogBalance(ctx, actorID, serverID, characterID, amount, balance, domain.AuditActionBalanceCredit)
	return balance, nil
}

// списывает amount > 0, лишнее обнуляет баланс без ошибки
func (s *EconomyService) Remove(ctx context.Context, actorID, characterID, serverID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	balance, err := s.balances.Remove(ctx, characterID, serverID, amount)
	if err != nil {
		return 0, err
	}
	s.audit.LogBalance(ctx, actorID, serverID, characterID, -amount, balance, domain.AuditActionBalanceDebit)
	return balance, nil
}

type TransferRequest struct {
	ActorID         int64
	FromCharacterID int64
	ToCharacterID   int64
	ServerID        int64
	Amount          int64
	Authorized      bool
}

// Transfer переводит деньги. Самоперевод, отсутствие прав или нехватка
// средств дают nil, nil и ничего не меняют.
func (s *EconomyService) Transfer(ctx context.Context, req TransferRequest) (*domain.Transfer, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.FromCharacterID == req.ToCharacterID {
		s.metrics.Transfers.WithLabelValues("self").Inc()
		return nil, nil
	}
	if !req.Authorized {
		s.metrics.Transfers.WithLabelValues("unauthorized").Inc()
		return nil, nil
	}

	t, err := s.balances.Transfer(ctx, req.FromCharacterID, req.ToCharacterID, req.ServerID, req.Amount)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			s.metrics.Transfers.WithLabelValues("insufficient").Inc()
			return nil, nil
		}
		s.metrics.Transfers.WithLabelValues("error").Inc()
		return nil, err
	}

	s.metrics.Transfers.WithLabelValues("ok").Inc()
	s.audit.LogTransfer(ctx, req.ActorID, t)
	if err := s.events.Publish(ctx, SubjectMoneyTransferred, t); err != nil {
		s.log.Warn("failed to publish transfer event", "error", err)
	}
	return t, nil
}
