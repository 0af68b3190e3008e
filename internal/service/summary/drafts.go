package summary

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/discharge-api/internal/model"
)

const (
	DefaultDraftTTL     = 30 * time.Minute
	defaultDraftCleanup = 5 * time.Minute
)

// DraftStore keeps generated drafts until they expire.
type DraftStore struct {
	cache *cache.Cache
}

func NewDraftStore(ttl time.Duration) *DraftStore {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	cleanup := defaultDraftCleanup
	if ttl < cleanup {
		cleanup = ttl
	}
	return &DraftStore{cache: cache.New(ttl, cleanup)}
}

func (s *DraftStore) Save(draft *model.Draft) {
	s.cache.SetDefault(draft.ID, *draft)
}

func (s *DraftStore) Get(id string) (*model.Draft, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	draft := v.(model.Draft)
	return &draft, true
}

func (s *DraftStore) Len() int {
	return s.cache.ItemCount()
}
