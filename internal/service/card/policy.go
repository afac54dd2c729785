package card

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/repository"
	apperrors "github.com/jwalitptl/cliniccare-api/pkg/errors"
)

const (
	policyCacheKey = "card_policy"
	policyCacheTTL = 5 * time.Minute
)

// PolicyStore reads the clinic card policy through an in-process cache. A clinic
// that never saved a policy gets the defaults.
type PolicyStore struct {
	repo            repository.CardPolicyRepository
	cache           *cache.Cache
	defaultValidity int
}

type PolicyStoreOption func(*PolicyStore)

// WithDefaultValidity overrides the validity used until a policy is saved.
func WithDefaultValidity(days int) PolicyStoreOption {
	return func(s *PolicyStore) {
		if days > 0 {
			s.defaultValidity = days
		}
	}
}

func NewPolicyStore(repo repository.CardPolicyRepository, opts ...PolicyStoreOption) *PolicyStore {
	s := &PolicyStore{
		repo:            repo,
		cache:           cache.New(policyCacheTTL, 2*policyCacheTTL),
		defaultValidity: model.DefaultCardValidityDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns a copy; callers may modify it.
func (s *PolicyStore) Policy(ctx context.Context) (*model.CardPolicy, error) {
	if v, ok := s.cache.Get(policyCacheKey); ok {
		p := *v.(*model.CardPolicy)
		return &p, nil
	}

	policy, err := s.repo.Get(ctx)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to load card policy: %w", err)
		}
		policy = model.DefaultCardPolicy()
		policy.CardValidityDays = s.defaultValidity
	}

	s.cache.Set(policyCacheKey, policy, cache.DefaultExpiration)
	p := *policy
	return &p, nil
}

func (s *PolicyStore) Save(ctx context.Context, policy *model.CardPolicy) error {
	if err := s.repo.Upsert(ctx, policy); err != nil {
		s.cache.Delete(policyCacheKey)
		return fmt.Errorf("failed to save card policy: %w", err)
	}
	stored := *policy
	s.cache.Set(policyCacheKey, &stored, cache.DefaultExpiration)
	return nil
}
