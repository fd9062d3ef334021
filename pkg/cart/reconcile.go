package cart

import (
	"context"

	"github.com/example/storefront/pkg/audit"
	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/port"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LineFailure struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
	Err       error  `json:"-"`
}

type Result struct {
	Lines    []models.CartLine `json:"lines"`
	Total    decimal.Decimal   `json:"total"`
	Merged   int               `json:"merged"`
	Failed   []LineFailure     `json:"failed,omitempty"`
	Replayed bool              `json:"replayed,omitempty"`
}

// Reconciler moves the session cart into the account cart when a visitor logs
// in. Merging is additive and best effort: a line that cannot be merged is
// reported and dropped, the rest still merge.
type Reconciler struct {
	carts   *Service
	ledger  port.MergeLedger
	audit   audit.Recorder
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewReconciler accepts a nil ledger, recorder and metrics.
func NewReconciler(carts *Service, ledger port.MergeLedger, recorder audit.Recorder, m *metrics.Metrics, logger *zap.Logger) *Reconciler {
	if recorder == nil {
		recorder = audit.Discard{}
	}
	return &Reconciler{carts: carts, ledger: ledger, audit: recorder, metrics: m, logger: logger.Named("cart-reconciler")}
}

// ReconcileOnLogin merges the lines of sessionID into the account cart of
// userID and returns the resulting account cart. When loginEventID is set the
// merge happens at most once per event; a replay only clears the session cart
// and reads the account cart back.
func (r *Reconciler) ReconcileOnLogin(ctx context.Context, sessionID, userID, loginEventID string) (*Result, error) {
	if userID == "" {
		return nil, errs.ErrUnauthenticated
	}

	log := r.logger.With(zap.String("user_id", userID), zap.String("session_id", sessionID))
	local := r.carts.Local(sessionID)
	server := r.carts.Server(userID)
	res := &Result{}

	if loginEventID != "" && r.ledger != nil {
		claimed, err := r.ledger.Claim(ctx, mergeKey(userID, loginEventID))
		switch {
		case err != nil:
			log.Warn("Merge ledger unavailable, merging without it", zap.Error(err))
		case !claimed:
			res.Replayed = true
		}
	}

	if sessionID != "" {
		r.mergeLocal(ctx, log, local, server, res)
	}

	lines, err := server.Lines(ctx)
	if err != nil {
		return nil, err
	}
	res.Lines = lines
	res.Total = models.SumLines(lines)

	outcome := "merged"
	switch {
	case res.Replayed:
		outcome = "replayed"
	case len(res.Failed) > 0:
		outcome = "partial"
	}
	r.metrics.Reconciled(outcome, res.Merged)

	log.Info("Cart reconciled",
		zap.String("outcome", outcome),
		zap.Int("merged", res.Merged),
		zap.Int("failed", len(res.Failed)))

	r.audit.Record(audit.Event{
		Action:   audit.ActionCartReconciled,
		EntityID: "user:" + userID,
		ActorID:  userID,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"merged":     res.Merged,
			"failed":     len(res.Failed),
			"replayed":   res.Replayed,
		},
	})

	return res, nil
}

func (r *Reconciler) mergeLocal(ctx context.Context, log *zap.Logger, local *LocalCart, server *ServerCart, res *Result) {
	lines, err := local.Lines(ctx)
	if err != nil {
		// Lines that were never read are never cleared.
		log.Warn("Failed to read session cart, leaving it in place", zap.Error(err))
		return
	}

	if !res.Replayed {
		for _, l := range lines {
			if _, err := server.AddLine(ctx, l.ProductID, l.Quantity); err != nil {
				log.Warn("Failed to merge cart line",
					zap.Int64("product_id", l.ProductID),
					zap.Int("quantity", l.Quantity),
					zap.Error(err))
				res.Failed = append(res.Failed, LineFailure{
					ProductID: l.ProductID,
					Quantity:  l.Quantity,
					Reason:    err.Error(),
					Err:       err,
				})
				continue
			}
			res.Merged++
		}
	}

	if len(lines) == 0 {
		return
	}
	if err := local.Clear(ctx); err != nil {
		log.Error("Failed to clear session cart after merge", zap.Error(err))
	}
}

// OnLogout forgets the session cart. The account cart is untouched.
func (r *Reconciler) OnLogout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return r.carts.Local(sessionID).Clear(ctx)
}

func mergeKey(userID, loginEventID string) string {
	return userID + ":" + loginEventID
}
