package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/elimu/core/sponsorship"
)

type sponsorshipRepository struct {
	db *DB
}

var _ sponsorship.Repository = (*sponsorshipRepository)(nil)

func NewSponsorshipRepository(db *DB) sponsorship.Repository {
	return &sponsorshipRepository{db: db}
}

func (repo *sponsorshipRepository) CreateSponsor(ctx context.Context, s sponsorship.Sponsor) (sponsorship.Sponsor, error) {
	defer repo.db.lock(ctx)()
	for _, existing := range repo.db.sponsors {
		if existing.UserID == s.UserID {
			return sponsorship.Sponsor{}, sponsorship.ErrSponsorExists
		}
	}
	repo.db.sponsors[s.ID] = s
	return s, nil
}

func (repo *sponsorshipRepository) GetSponsor(ctx context.Context, id string) (sponsorship.Sponsor, error) {
	defer repo.db.lock(ctx)()
	if s, ok := repo.db.sponsors[id]; ok {
		return s, nil
	}
	return sponsorship.Sponsor{}, sponsorship.ErrSponsorNotFound
}

func (repo *sponsorshipRepository) GetSponsorByUser(ctx context.Context, userID string) (sponsorship.Sponsor, error) {
	defer repo.db.lock(ctx)()
	for _, s := range repo.db.sponsors {
		if s.UserID == userID {
			return s, nil
		}
	}
	return sponsorship.Sponsor{}, sponsorship.ErrSponsorNotFound
}

func (repo *sponsorshipRepository) DebitSponsor(ctx context.Context, sponsorID string, amount decimal.Decimal) error {
	defer repo.db.lock(ctx)()
	s, ok := repo.db.sponsors[sponsorID]
	if !ok {
		return sponsorship.ErrSponsorNotFound
	}
	if s.FundsProvided.LessThan(amount) {
		return sponsorship.ErrInsufficientFunds
	}
	s.FundsProvided = s.FundsProvided.Sub(amount)
	repo.db.sponsors[sponsorID] = s
	return nil
}

func (repo *sponsorshipRepository) CreateSponsorship(ctx context.Context, s sponsorship.Sponsorship) (sponsorship.Sponsorship, error) {
	defer repo.db.lock(ctx)()
	if _, ok := repo.db.sponsors[s.SponsorID]; !ok {
		return sponsorship.Sponsorship{}, sponsorship.ErrSponsorNotFound
	}
	repo.db.sponsorships[s.ID] = s
	return s, nil
}

func (repo *sponsorshipRepository) GetSponsorship(ctx context.Context, id string) (sponsorship.Sponsorship, error) {
	defer repo.db.lock(ctx)()
	if s, ok := repo.db.sponsorships[id]; ok {
		return s, nil
	}
	return sponsorship.Sponsorship{}, sponsorship.ErrNotFound
}

func (repo *sponsorshipRepository) DecidePending(
	ctx context.Context,
	id string,
	status sponsorship.Status,
	amount decimal.Decimal,
	at time.Time,
) (sponsorship.Sponsorship, error) {
	defer repo.db.lock(ctx)()
	s, ok := repo.db.sponsorships[id]
	if !ok {
		return sponsorship.Sponsorship{}, sponsorship.ErrNotFound
	}
	if s.Status != sponsorship.StatusPending {
		return sponsorship.Sponsorship{}, sponsorship.ErrAlreadyDecided
	}
	s.Status = status
	s.Amount = amount
	s.UpdatedAt = at
	repo.db.sponsorships[id] = s
	return s, nil
}

func (repo *sponsorshipRepository) QuerySponsorships(ctx context.Context, filter sponsorship.QueryFilter) ([]sponsorship.Sponsorship, error) {
	defer repo.db.lock(ctx)()
	list := make([]sponsorship.Sponsorship, 0)
	for _, s := range repo.db.sponsorships {
		if filter.SponsorID != "" && s.SponsorID != filter.SponsorID {
			continue
		}
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}
