package paymentsvc

import (
	"context"
	"log/slog"
	"time"

	"github.com/angata1/PawBit/model"
	depositrepo "github.com/angata1/PawBit/repository/deposit"
	striperepo "github.com/angata1/PawBit/repository/stripe"
	walletsvc "github.com/angata1/PawBit/service/wallet"
	"github.com/angata1/PawBit/util/metrics"

	"github.com/robfig/cron/v3"
)

const (
	reconcileGrace = time.Minute
	reconcileBatch = 50
	// intents still unsettled this long after creation stop being polled
	reconcileExpiry = 24 * time.Hour
)

type Settler interface {
	Settle(ctx context.Context, id model.Identity, in *striperepo.Intent) (*walletsvc.Result, error)
}

type Reconciler interface {
	// Reconcile credits tracked intents that succeeded but were never confirmed
	// by the client, fails the canceled ones and expires the ones left open
	// past the expiry window. Returns how many were credited.
	Reconcile(ctx context.Context) (int, error)
}

type reconciler struct {
	dr  depositrepo.Repo
	sr  striperepo.Repo
	w   Settler
	log *slog.Logger
	now func() time.Time
}

func NewReconciler(dr depositrepo.Repo, sr striperepo.Repo, w Settler, log *slog.Logger) Reconciler {
	return &reconciler{dr: dr, sr: sr, w: w, log: log, now: time.Now}
}

func (r *reconciler) Reconcile(ctx context.Context) (int, error) {
	pending, err := r.dr.ListPending(ctx, r.now().Add(-reconcileGrace), reconcileBatch)
	if err != nil {
		return 0, err
	}
	credited := 0
	for _, d := range pending {
		in, err := r.sr.GetIntent(ctx, d.PaymentIntentID)
		if err != nil {
			r.log.Warn("reconcile: retrieve intent failed", "payment_intent_id", d.PaymentIntentID, "err", err)
			metrics.RecordReconciled("error")
			r.touch(ctx, d.PaymentIntentID)
			continue
		}
		switch {
		case in.Succeeded():
			if _, err := r.w.Settle(ctx, model.Identity{ID: d.UserAuthID}, in); err != nil {
				r.log.Error("reconcile: credit failed", "payment_intent_id", d.PaymentIntentID, "err", err)
				metrics.RecordReconciled("error")
				r.touch(ctx, d.PaymentIntentID)
				continue
			}
			credited++
			metrics.RecordReconciled("credited")
		case in.Canceled():
			if err := r.dr.MarkStatus(ctx, d.PaymentIntentID, model.DepositFailed); err != nil {
				r.log.Warn("reconcile: mark failed", "payment_intent_id", d.PaymentIntentID, "err", err)
				continue
			}
			metrics.RecordReconciled("failed")
		case d.CreatedAt.Before(r.now().Add(-reconcileExpiry)):
			if err := r.dr.MarkStatus(ctx, d.PaymentIntentID, model.DepositExpired); err != nil {
				r.log.Warn("reconcile: mark expired", "payment_intent_id", d.PaymentIntentID, "err", err)
				continue
			}
			metrics.RecordReconciled("expired")
		default:
			r.touch(ctx, d.PaymentIntentID)
		}
	}
	return credited, nil
}

// touch moves an intent to the back of the pending queue.
func (r *reconciler) touch(ctx context.Context, paymentIntentID string) {
	if err := r.dr.Touch(ctx, paymentIntentID); err != nil {
		r.log.Warn("reconcile: touch", "payment_intent_id", paymentIntentID, "err", err)
	}
}

// Schedule runs the reconciler on a cron spec such as "@every 5m".
// The returned cron is already started; Stop it on shutdown.
func Schedule(spec string, r Reconciler, log *slog.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		n, err := r.Reconcile(ctx)
		if err != nil {
			log.Error("reconcile failed", "err", err)
			return
		}
		if n > 0 {
			log.Info("reconciled deposits", "credited", n)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
