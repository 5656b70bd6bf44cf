package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/repository/postgres"
	"go.uber.org/zap"
)

// CommissionService распространяет комиссию заказа по реферальным цепочкам.
type CommissionService struct {
	commissionRepo domain.CommissionRepository
	logger         *zap.Logger
	maxDepth       int
}

// NewCommissionService создает новый CommissionService.
// maxDepth ограничивает длину обхода одной цепочки и гарантирует
// завершение даже на поврежденном реферальном графе.
func NewCommissionService(commissionRepo domain.CommissionRepository, logger *zap.Logger, maxDepth int) *CommissionService {
	return &CommissionService{
		commissionRepo: commissionRepo,
		logger:         logger,
		maxDepth:       maxDepth,
	}
}

// branchState хранит состояние обхода цепочки одного продавца
type branchState struct {
	result domain.BranchResult
	next   *int64
	hop    int
	done   bool
}

// Propagate начисляет комиссию по заказу: каждому продавцу — сумму
// комиссий его позиций, затем ту же сумму каждому предку по цепочке
// referred_by, без уменьшения по уровням. Сначала начисление получают
// все продавцы, затем обходятся их цепочки. Каждый шаг идемпотентен,
// поэтому повторная обработка заказа не приводит к двойным начислениям.
// Если хотя бы одна ветка прервана ошибкой или циклом, возвращается
// ErrPartialPropagation вместе с подробным результатом.
func (s *CommissionService) Propagate(ctx context.Context, order *domain.Order) (*domain.PropagationResult, error) {
	credits := creditsBySeller(order.Items)

	// Детерминированный порядок обхода продавцов
	sellers := make([]int64, 0, len(credits))
	for sellerID := range credits {
		sellers = append(sellers, sellerID)
	}
	sort.Slice(sellers, func(i, j int) bool { return sellers[i] < sellers[j] })

	// Фаза 1: начисление самим продавцам
	states := make([]*branchState, 0, len(sellers))
	for _, sellerID := range sellers {
		state := &branchState{
			result: domain.BranchResult{SellerID: sellerID, Credit: credits[sellerID]},
		}
		states = append(states, state)
		s.creditHop(ctx, order.ID, state)
	}

	// Фаза 2: обход цепочек предков
	for _, state := range states {
		visited := map[int64]bool{state.result.SellerID: true}

		for !state.done {
			if state.next == nil {
				// Достигнут корень дерева
				break
			}
			if visited[*state.next] {
				state.result.CycleDetected = true
				s.logger.Error("referral cycle detected, aborting branch",
					zap.String("order", order.ID),
					zap.Int64("seller", state.result.SellerID),
					zap.Int64("user", *state.next),
				)
				break
			}
			if state.hop >= s.maxDepth {
				state.result.DepthExceeded = true
				s.logger.Warn("referral chain truncated at max depth",
					zap.String("order", order.ID),
					zap.Int64("seller", state.result.SellerID),
					zap.Int("max_depth", s.maxDepth),
				)
				break
			}

			visited[*state.next] = true
			s.creditHop(ctx, order.ID, state)
		}
	}

	result := &domain.PropagationResult{OrderID: order.ID}
	for _, state := range states {
		result.Branches = append(result.Branches, state.result)
	}

	if result.Failed() {
		return result, ErrPartialPropagation
	}
	return result, nil
}

// creditHop применяет одно начисление и продвигает состояние ветки
func (s *CommissionService) creditHop(ctx context.Context, orderID string, state *branchState) {
	beneficiary := state.result.SellerID
	if state.hop > 0 {
		beneficiary = *state.next
	}

	event := domain.CommissionEvent{
		OrderID:       orderID,
		BeneficiaryID: beneficiary,
		SellerID:      state.result.SellerID,
		Amount:        state.result.Credit,
		Hop:           state.hop,
	}

	next, applied, err := s.commissionRepo.Credit(ctx, event)
	if err != nil {
		// Пропавший пользователь обрывает ветку: часть предков остается
		// без начисления, это фиксируется в результате для сверки
		if errors.Is(err, postgres.ErrUserNotFound) {
			state.result.Error = fmt.Sprintf("beneficiary %d not found", beneficiary)
		} else {
			state.result.Error = err.Error()
		}
		state.done = true
		s.logger.Error("commission credit failed",
			zap.String("order", orderID),
			zap.Int64("beneficiary", beneficiary),
			zap.Error(err),
		)
		return
	}

	if applied {
		state.result.HopsCredited++
	}
	state.next = next
	state.hop++
}

// creditsBySeller группирует комиссию позиций заказа по продавцам.
// Позиции без комиссии не участвуют в распространении.
func creditsBySeller(items []domain.OrderItem) map[int64]float64 {
	credits := make(map[int64]float64)
	for _, item := range items {
		credit := item.UnitCommission * float64(item.Quantity)
		if credit <= 0 {
			continue
		}
		credits[item.SellerID] += credit
	}
	return credits
}
