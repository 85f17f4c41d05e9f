package feedersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/angata1/PawBit/model"
	feederrepo "github.com/angata1/PawBit/repository/feeder"
	mealrepo "github.com/angata1/PawBit/repository/meal"
)

const (
	// FeedingWindow is how long a feeder reports "feeding" after a paid meal.
	FeedingWindow   = 10 * time.Second
	detailFeedings  = 10
	defaultFeedings = 20
	maxFeedings     = 100
)

var ErrNotFound = errors.New("feeder not found")

type Detail struct {
	Feeder   model.Feeder    `json:"feeder"`
	Feedings []model.Feeding `json:"feedings"`
}

type Service interface {
	List(ctx context.Context) ([]model.Feeder, error)
	// Detail returns the feeder and its latest feedings; id "all" aggregates the network.
	Detail(ctx context.Context, id string) (*Detail, error)
	Feedings(ctx context.Context, limit int) ([]model.Feeding, error)
	Exists(ctx context.Context, id string) (bool, error)
	// MarkFed flags the feeder as feeding and stamps last_feeding_at. Failures are logged only.
	MarkFed(ctx context.Context, id string)
}

type service struct {
	fr   feederrepo.Repo
	mr   mealrepo.Repo
	live feederrepo.LiveState
	log  *slog.Logger
	now  func() time.Time
}

func New(fr feederrepo.Repo, mr mealrepo.Repo, live feederrepo.LiveState, log *slog.Logger) Service {
	return &service{fr: fr, mr: mr, live: live, log: log, now: time.Now}
}

func (s *service) List(ctx context.Context) ([]model.Feeder, error) {
	list, err := s.fr.List(ctx)
	if err != nil {
		return nil, err
	}
	s.overlay(ctx, list)
	if list == nil {
		list = []model.Feeder{}
	}
	return list, nil
}

func (s *service) overlay(ctx context.Context, list []model.Feeder) {
	ids := make([]string, len(list))
	for i, f := range list {
		ids[i] = f.ID
	}
	feeding, err := s.live.Feeding(ctx, ids)
	if err != nil {
		s.log.Warn("live state unavailable", "err", err)
		return
	}
	for i := range list {
		if feeding[list[i].ID] {
			list[i].Status = model.FeederFeeding
		}
	}
}

func (s *service) Detail(ctx context.Context, id string) (*Detail, error) {
	if id == model.AllFeeders {
		return s.network(ctx)
	}
	f, err := s.fr.Get(ctx, id)
	if err != nil {
		if errors.Is(err, feederrepo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	one := []model.Feeder{*f}
	s.overlay(ctx, one)

	feedings, err := s.mr.ListByFeeder(ctx, id, detailFeedings)
	if err != nil {
		return nil, err
	}
	return &Detail{Feeder: one[0], Feedings: nonNil(feedings)}, nil
}

// network builds the virtual feeder standing for every station at once.
func (s *service) network(ctx context.Context) (*Detail, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	agg := model.Feeder{
		ID:     model.AllFeeders,
		Name:   "Global FoodFlow Network",
		Status: model.FeederActive,
	}
	active, food := 0, 0
	for _, f := range list {
		if f.Status == model.FeederActive || f.Status == model.FeederFeeding {
			active++
		}
		if f.Status == model.FeederFeeding {
			agg.Status = model.FeederFeeding
		}
		food += f.FoodLevel
		agg.AnimalsDetected += f.AnimalsDetected
		if f.LastFeedingAt != nil && (agg.LastFeedingAt == nil || f.LastFeedingAt.After(*agg.LastFeedingAt)) {
			t := *f.LastFeedingAt
			agg.LastFeedingAt = &t
		}
	}
	if len(list) > 0 {
		agg.FoodLevel = food / len(list)
	}
	agg.Location.Address = fmt.Sprintf("Connected to all %d active stations", active)

	feedings, err := s.mr.ListRecent(ctx, detailFeedings)
	if err != nil {
		return nil, err
	}
	return &Detail{Feeder: agg, Feedings: nonNil(feedings)}, nil
}

func (s *service) Feedings(ctx context.Context, limit int) ([]model.Feeding, error) {
	if limit <= 0 {
		limit = defaultFeedings
	}
	if limit > maxFeedings {
		limit = maxFeedings
	}
	rows, err := s.mr.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return nonNil(rows), nil
}

func (s *service) Exists(ctx context.Context, id string) (bool, error) {
	if id == "" || id == model.AllFeeders {
		return false, nil
	}
	_, err := s.fr.Get(ctx, id)
	if errors.Is(err, feederrepo.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *service) MarkFed(ctx context.Context, id string) {
	if err := s.live.MarkFeeding(ctx, id, FeedingWindow); err != nil {
		s.log.Warn("mark feeder feeding failed", "feeder_id", id, "err", err)
	}
	if err := s.fr.TouchFed(ctx, id, s.now().UTC()); err != nil {
		s.log.Warn("touch feeder failed", "feeder_id", id, "err", err)
	}
}

func nonNil(rows []model.Feeding) []model.Feeding {
	if rows == nil {
		return []model.Feeding{}
	}
	return rows
}
