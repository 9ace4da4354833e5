package inmemory

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/profefe/jsprof/pkg/profile"
	"github.com/profefe/jsprof/pkg/storage"
	"golang.org/x/xerrors"
)

type storageItem struct {
	meta      profile.Meta
	labelsIdx map[profile.Label]struct{}
	digest    uint64
	data      []byte
}

// Storage keeps profiles in memory. Identical payloads of one service are rejected.
type Storage struct {
	mu      sync.RWMutex
	items   map[string]*storageItem
	digests map[uint64]string
}

var (
	_ storage.Reader = (*Storage)(nil)
	_ storage.Writer = (*Storage)(nil)
)

func New() *Storage {
	return &Storage{
		items:   make(map[string]*storageItem),
		digests: make(map[uint64]string),
	}
}

func (st *Storage) WriteProfile(ctx context.Context, params *storage.WriteProfileParams, r io.Reader) (profile.Meta, error) {
	if err := params.Validate(); err != nil {
		return profile.Meta{}, err
	}

	data, err := ioutil.ReadAll(r)
	if err != nil {
		return profile.Meta{}, xerrors.Errorf("could not read profile: %w", err)
	}
	if len(data) == 0 {
		return profile.Meta{}, storage.ErrEmpty
	}

	meta := params.NewMeta(int64(len(data)))

	h := xxhash.New()
	h.WriteString(meta.Service)
	h.Write(data)
	dgst := h.Sum64()

	labelsIdx := make(map[profile.Label]struct{}, len(meta.Labels))
	for _, label := range meta.Labels {
		labelsIdx[label] = struct{}{}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if pid, ok := st.digests[dgst]; ok {
		return profile.Meta{}, xerrors.Errorf("duplicate of profile %s: %v", pid, meta)
	}

	pid := meta.ProfileID.String()
	st.items[pid] = &storageItem{
		meta:      meta,
		labelsIdx: labelsIdx,
		digest:    dgst,
		data:      data,
	}
	st.digests[dgst] = pid

	return meta, nil
}

func (st *Storage) OpenProfile(ctx context.Context, pid profile.ID) (io.ReadCloser, profile.Meta, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	item, ok := st.items[pid.String()]
	if !ok {
		return nil, profile.Meta{}, storage.ErrNotFound
	}
	return ioutil.NopCloser(bytes.NewReader(item.data)), item.meta, nil
}

func (st *Storage) ListServices(ctx context.Context) ([]string, error) {
	st.mu.RLock()
	uniq := make(map[string]struct{})
	for _, item := range st.items {
		uniq[item.meta.Service] = struct{}{}
	}
	st.mu.RUnlock()

	if len(uniq) == 0 {
		return nil, storage.ErrNotFound
	}

	services := make([]string, 0, len(uniq))
	for s := range uniq {
		services = append(services, s)
	}
	sort.Strings(services)

	return services, nil
}

// FindProfiles returns metas of matching profiles, newest first.
func (st *Storage) FindProfiles(ctx context.Context, params *storage.FindProfilesParams) ([]profile.Meta, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	st.mu.RLock()
	var metas []profile.Meta
	for _, item := range st.items {
		if item.match(params) {
			metas = append(metas, item.meta)
		}
	}
	st.mu.RUnlock()

	if len(metas) == 0 {
		return nil, storage.ErrNotFound
	}

	sort.Slice(metas, func(i, j int) bool {
		if metas[i].CreatedAt.Equal(metas[j].CreatedAt) {
			return bytes.Compare(metas[i].ProfileID, metas[j].ProfileID) > 0
		}
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	if params.Limit > 0 && len(metas) > params.Limit {
		metas = metas[:params.Limit]
	}

	return metas, nil
}

func (st *Storage) FindProfileIDs(ctx context.Context, params *storage.FindProfilesParams) ([]profile.ID, error) {
	metas, err := st.FindProfiles(ctx, params)
	if err != nil {
		return nil, err
	}
	ids := make([]profile.ID, len(metas))
	for i := range metas {
		ids[i] = metas[i].ProfileID
	}
	return ids, nil
}

func (item *storageItem) match(params *storage.FindProfilesParams) bool {
	meta := item.meta
	if meta.Service != params.Service {
		return false
	}
	if params.Type != profile.TypeUnknown && meta.Type != params.Type {
		return false
	}
	if meta.CreatedAt.Before(params.CreatedAtMin) {
		return false
	}
	if !params.CreatedAtMax.IsZero() && meta.CreatedAt.After(params.CreatedAtMax) {
		return false
	}
	for _, label := range params.Labels {
		if _, ok := item.labelsIdx[label]; !ok {
			return false
		}
	}
	return true
}
