// Package sales implements the Transactional Domain Orchestrator for sale
// creation — the nucleus of the system (spec §4.4). Grounded on
// original_source/backend/app/modules/sales/service.py's create_sale,
// reimplemented around mongo-driver sessions and shopspring/decimal instead
// of Motor + Python Decimal.
package sales

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nexusgateway/mcp-gateway/internal/audit"
	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
	"github.com/nexusgateway/mcp-gateway/internal/events"
	"github.com/nexusgateway/mcp-gateway/internal/metrics"
	"github.com/nexusgateway/mcp-gateway/internal/store"
	"github.com/nexusgateway/mcp-gateway/internal/tasks"
)

// DuplicateWindow is the default lookback window for duplicate-intent
// detection (spec §4.4 step 1).
const DuplicateWindow = 5 * time.Minute

// MaxAllocationRetries bounds the optimistic-concurrency retry loop
// (spec §4.4 step 3 default N=3).
const MaxAllocationRetries = 3

// ItemInput is one requested line item.
type ItemInput struct {
	SKU      string
	Quantity int
}

// CreateSaleInput is the Sale-creation orchestrator's input (spec §4.4).
type CreateSaleInput struct {
	ClientID       string
	AgentID        string
	AgentType      store.AgentType
	Items          []ItemInput
	OriginChannel  string
	Note           string
	Currency       string
	IdempotencyKey string
}

// ProfileLookup is the narrow slice of the people domain the sales service
// depends on, kept as an interface so sales doesn't import people directly
// (accept-interfaces, per the teacher's agentRepo/domainVerifier pattern).
type ProfileLookup interface {
	GetActiveClientByID(ctx context.Context, clientID string) (*store.Profile, error)
}

// Service implements sale creation and read-side queries.
type Service struct {
	client     *store.Client
	profiles   ProfileLookup
	publisher  *events.Publisher
	dispatcher *tasks.Dispatcher
	auditSink  *audit.Sink
	logger     *zap.Logger
}

// NewService wires a Service from the shared-services bundle.
func NewService(client *store.Client, profiles ProfileLookup, publisher *events.Publisher, dispatcher *tasks.Dispatcher, auditSink *audit.Sink, logger *zap.Logger) *Service {
	return &Service{
		client:     client,
		profiles:   profiles,
		publisher:  publisher,
		dispatcher: dispatcher,
		auditSink:  auditSink,
		logger:     logger,
	}
}

// allocationResult captures one item's resolved pricing after stock
// allocation, for building the persisted Sale.
type allocationResult struct {
	item       store.SaleItem
	product    *store.Product
}

// CreateSale implements the full algorithm from spec §4.4.
func (s *Service) CreateSale(ctx context.Context, traceID string, in CreateSaleInput) (*store.Sale, error) {
	start := time.Now()

	if err := validateCreateSaleInput(in); err != nil {
		return nil, err
	}

	// Step 1: pre-flight, outside any transaction.
	profile, err := s.profiles.GetActiveClientByID(ctx, in.ClientID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, errorsx.EntityNotFound("profile", in.ClientID)
		}
		if ae, ok := err.(*errorsx.AgentError); ok {
			return nil, ae
		}
		return nil, errorsx.DependencyUnavailable("profile lookup failed")
	}
	if !profile.Active {
		return nil, errorsx.EntityNotFound("profile", in.ClientID)
	}

	if in.IdempotencyKey != "" {
		if existing, err := s.client.Sales.FindByIdempotencyKey(ctx, in.ClientID, in.IdempotencyKey); err == nil {
			return existing, nil
		} else if err != store.ErrNotFound {
			return nil, errorsx.DependencyUnavailable("idempotency lookup failed")
		}
	}

	if err := s.checkDuplicateSale(ctx, in); err != nil {
		return nil, err
	}

	// Steps 2–4: multi-document transaction.
	result, err := s.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		allocations := make([]allocationResult, 0, len(in.Items))
		total := decimal.Zero

		for _, item := range in.Items {
			alloc, err := s.allocateItem(sessCtx, item)
			if err != nil {
				return nil, err
			}
			allocations = append(allocations, alloc)
			total = total.Add(alloc.item.TotalPrice)
		}

		now := time.Now().UTC()
		items := make([]store.SaleItem, len(allocations))
		for i, a := range allocations {
			items[i] = a.item
		}

		sale := &store.Sale{
			ClientID:       in.ClientID,
			AgentID:        in.AgentID,
			AgentType:      in.AgentType,
			Items:          items,
			TotalAmount:    total,
			Currency:       in.Currency,
			Status:         store.SaleStatusProcessing,
			PaymentStatus:  "pending",
			IdempotencyKey: in.IdempotencyKey,
			OriginChannel:  in.OriginChannel,
			Note:           in.Note,
			CreatedAt:      now,
			UpdatedAt:      now,
			StatusHistory: []store.SaleStatusEvent{
				{Status: store.SaleStatusProcessing, At: now, Actor: in.AgentID},
			},
		}

		if err := s.client.Sales.Create(sessCtx, sale); err != nil {
			if err == store.ErrIdempotentConflict {
				existing, ferr := s.client.Sales.FindByIdempotencyKey(sessCtx, in.ClientID, in.IdempotencyKey)
				if ferr != nil {
					return nil, errorsx.InternalWrap(ferr)
				}
				return existing, nil
			}
			return nil, errorsx.InternalWrap(err)
		}
		return sale, nil
	})
	if err != nil {
		return nil, errorsx.AsAgentError(err)
	}

	sale := result.(*store.Sale)

	// Step 6: post-commit fan-out, best-effort and decoupled.
	s.postCommitFanOut(traceID, sale, time.Since(start))

	return sale, nil
}

func validateCreateSaleInput(in CreateSaleInput) error {
	if len(in.Items) == 0 {
		return errorsx.ValidationFailed(map[string]string{"items": "must not be empty"})
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return errorsx.ValidationFailed(map[string]string{"quantity": "must be positive"})
		}
		if item.SKU == "" {
			return errorsx.ValidationFailed(map[string]string{"sku": "required"})
		}
	}
	if len(in.Currency) > 3 {
		return errorsx.ValidationFailed(map[string]string{"currency": "must be at most 3 characters"})
	}
	return nil
}

// checkDuplicateSale builds the canonical signature sort(sku:qty|...).join("|")
// and compares it against recent sales for the same (agent_id, client_id).
func (s *Service) checkDuplicateSale(ctx context.Context, in CreateSaleInput) error {
	recent, err := s.client.Sales.FindRecentByAgentAndClient(ctx, in.AgentID, in.ClientID, DuplicateWindow)
	if err != nil {
		return errorsx.DependencyUnavailable("duplicate-sale check failed")
	}

	signature := canonicalSignature(in.Items)
	for _, candidate := range recent {
		candidateItems := make([]ItemInput, len(candidate.Items))
		for i, it := range candidate.Items {
			candidateItems[i] = ItemInput{SKU: it.SKU, Quantity: it.Quantity}
		}
		if canonicalSignature(candidateItems) == signature {
			return errorsx.Conflict("duplicate sale detected within the deduplication window")
		}
	}
	return nil
}

func canonicalSignature(items []ItemInput) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s:%d", it.SKU, it.Quantity)
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// allocateItem reads the product by SKU and attempts the optimistic CAS
// stock decrement with bounded randomized backoff retry (spec §4.4 step 3).
func (s *Service) allocateItem(ctx context.Context, item ItemInput) (allocationResult, error) {
	for attempt := 0; attempt < MaxAllocationRetries; attempt++ {
		product, err := s.client.Products.GetBySKU(ctx, item.SKU)
		if err != nil {
			if err == store.ErrNotFound {
				return allocationResult{}, errorsx.EntityNotFound("product", item.SKU)
			}
			return allocationResult{}, errorsx.DependencyUnavailable("product lookup failed")
		}

		if product.AvailableStock < item.Quantity {
			return allocationResult{}, errorsx.ConflictWithDetails("insufficient stock", map[string]any{
				"sku":       item.SKU,
				"requested": item.Quantity,
				"available": product.AvailableStock,
			})
		}

		err = s.client.Products.TryAllocateStock(ctx, product.ID, product.Version, item.Quantity)
		if err == nil {
			unitPrice := product.StandardSellingPrice
			totalPrice := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
			return allocationResult{
				item: store.SaleItem{
					ProductID:  product.ID,
					SKU:        product.SKU,
					Name:       product.Name,
					Quantity:   item.Quantity,
					UnitPrice:  unitPrice,
					TotalPrice: totalPrice,
				},
				product: product,
			}, nil
		}
		if err != store.ErrVersionConflict {
			return allocationResult{}, errorsx.DependencyUnavailable("stock allocation failed")
		}

		metrics.RecordStockAllocationRetry()
		backoff := time.Duration(rand.Intn(20)+10) * time.Millisecond * time.Duration(attempt+1)
		time.Sleep(backoff)
	}

	return allocationResult{}, errorsx.ConflictWithDetails("insufficient stock", map[string]any{
		"sku": item.SKU,
	})
}

// postCommitFanOut emits the audit record, publishes sales.created, and
// enqueues the two durable follow-up tasks — all best-effort, none of
// which can fail the already-committed sale (spec §4.4 step 6).
func (s *Service) postCommitFanOut(traceID string, sale *store.Sale, duration time.Duration) {
	ctx := context.Background()
	saleID := sale.ID.Hex()

	s.auditSink.LogEvent(ctx, audit.LogEventInput{
		TraceID:    traceID,
		ActorID:    sale.AgentID,
		Action:     "create_sale",
		EntityType: "sale",
		EntityID:   saleID,
		Success:    true,
		Result:     map[string]any{"sale_id": saleID, "status": sale.Status},
		Duration:   duration,
	})

	s.publisher.Publish(ctx, events.ChannelSalesCreated, events.TargetGroup, "sales_dashboard", "sale_created",
		map[string]any{"sale_id": saleID, "status": sale.Status}, traceID)

	if err := s.dispatcher.Enqueue(ctx, "sales.sync_banking", "sync_banking", map[string]any{"sale_id": saleID}, traceID); err != nil {
		s.logger.Error("enqueue sync_banking failed", zap.Error(err), zap.String("sale_id", saleID))
	}
	if err := s.dispatcher.Enqueue(ctx, "sales.initiate_delivery", "initiate_delivery", map[string]any{"sale_id": saleID}, traceID); err != nil {
		s.logger.Error("enqueue initiate_delivery failed", zap.Error(err), zap.String("sale_id", saleID))
	}
}

// GetSaleByID fetches a sale by id, for the get_sale_status agent action.
func (s *Service) GetSaleByID(ctx context.Context, id string) (*store.Sale, error) {
	sale, err := s.client.Sales.GetByID(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, errorsx.EntityNotFound("sale", id)
		}
		return nil, errorsx.DependencyUnavailable("sale lookup failed")
	}
	return sale, nil
}

// ListRecentSalesForUser returns the agent's most recent sales.
func (s *Service) ListRecentSalesForUser(ctx context.Context, agentID string, limit int64) ([]store.Sale, error) {
	sales, err := s.client.Sales.ListRecentForUser(ctx, agentID, limit)
	if err != nil {
		return nil, errorsx.DependencyUnavailable("sales lookup failed")
	}
	return sales, nil
}

// CancelSale implements the "any non-terminal → cancelled" transition
// (spec §4.4 state table): it restores each line item's allocated stock,
// then appends the cancelled status event. Rejects sales already in a
// terminal status.
func (s *Service) CancelSale(ctx context.Context, id, actorID string) (*store.Sale, error) {
	sale, err := s.GetSaleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if terminalSaleStatuses[sale.Status] {
		return nil, errorsx.Conflict(fmt.Sprintf("sale already in terminal status %q", sale.Status))
	}

	for _, item := range sale.Items {
		if err := s.client.Products.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			return nil, errorsx.InternalWrap(err)
		}
	}

	oid := sale.ID
	event := store.SaleStatusEvent{Status: store.SaleStatusCancelled, At: time.Now().UTC(), Actor: actorID}
	if err := s.client.Sales.AppendStatus(ctx, oid, event); err != nil {
		if err == store.ErrNotFound {
			return nil, errorsx.EntityNotFound("sale", id)
		}
		return nil, errorsx.InternalWrap(err)
	}

	sale.Status = store.SaleStatusCancelled
	sale.StatusHistory = append(sale.StatusHistory, event)

	s.publisher.Publish(ctx, events.ChannelSalesCreated, events.TargetGroup, "sales_dashboard", "sale_cancelled",
		map[string]any{"sale_id": id, "status": sale.Status}, "")

	s.auditSink.LogEvent(ctx, audit.LogEventInput{
		ActorID: actorID, Action: "cancel_sale", EntityType: "sale", EntityID: id, Success: true,
	})

	return sale, nil
}

var terminalSaleStatuses = map[store.SaleStatus]bool{
	store.SaleStatusDelivered: true,
	store.SaleStatusCancelled: true,
	store.SaleStatusRefunded:  true,
	store.SaleStatusError:     true,
}
