package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"io/ioutil"
	"time"

	"github.com/dgraph-io/badger"
	jsoniter "github.com/json-iterator/go"
	"github.com/profefe/jsprof/pkg/log"
	"github.com/profefe/jsprof/pkg/profile"
	"github.com/profefe/jsprof/pkg/storage"
	"golang.org/x/xerrors"
)

const (
	metaPrefix    byte = 1 << 6 // 0b01000000
	profilePrefix byte = 1 << 7 // 0b10000000
)

const (
	serviceIndexID = metaPrefix | 1 + iota
	typeIndexID
	labelsIndexID
)

const (
	// see https://godoc.org/github.com/rs/xid
	sizeOfProfileID = 12

	labelSep byte = '\xff'
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Storage struct {
	logger *log.Logger
	db     *badger.DB
	ttl    time.Duration
	cache  *cache
}

var (
	_ storage.Reader = (*Storage)(nil)
	_ storage.Writer = (*Storage)(nil)
)

func New(logger *log.Logger, db *badger.DB, ttl time.Duration) *Storage {
	return &Storage{
		logger: logger,
		db:     db,
		ttl:    ttl,
		cache:  newCache(logger, db),
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
	if err := st.writeProfileData(ctx, meta, data); err != nil {
		return profile.Meta{}, err
	}
	return meta, nil
}

func (st *Storage) writeProfileData(ctx context.Context, meta profile.Meta, data []byte) error {
	entries := make([]*badger.Entry, 0, 1+1+2+len(meta.Labels)) // 1 for profile entry, 1 for meta entry, 2 for general indexes

	createdAt := meta.CreatedAt.UnixNano()

	entries = append(entries, st.newBadgerEntry(createProfilePK(meta.ProfileID), data))

	mk, mv, err := createMetaKV(meta)
	if err != nil {
		return xerrors.Errorf("could not encode meta %v: %w", meta, err)
	}
	entries = append(entries, st.newBadgerEntry(mk, mv))

	// indexes
	indexVal := make([]byte, 0, len(meta.Service)+64)

	// by-service index
	{
		indexVal = append(indexVal, meta.Service...)
		entries = append(entries, st.newBadgerEntry(createIndexKey(serviceIndexID, indexVal, meta.ProfileID, createdAt), nil))
	}

	// by-service-type index
	{
		indexVal = append(indexVal[:0], meta.Service...)
		indexVal = append(indexVal, byte(meta.Type))
		entries = append(entries, st.newBadgerEntry(createIndexKey(typeIndexID, indexVal, meta.ProfileID, createdAt), nil))
	}

	// by-labels index
	for _, label := range meta.Labels {
		indexVal = append(indexVal[:0], meta.Service...)
		indexVal = append(indexVal, label.Key...)
		indexVal = append(indexVal, labelSep)
		indexVal = append(indexVal, label.Value...)
		entries = append(entries, st.newBadgerEntry(createIndexKey(labelsIndexID, indexVal, meta.ProfileID, createdAt), nil))
	}

	err = st.db.Update(func(txn *badger.Txn) error {
		for i := range entries {
			st.logger.Debugw("writeProfile: set entry", "pid", meta.ProfileID, "pk", entries[i].Key, "expires_at", entries[i].ExpiresAt)
			if err := txn.SetEntry(entries[i]); err != nil {
				return xerrors.Errorf("could not write entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	st.cache.PutService(meta.Service, entries[0].ExpiresAt)

	return nil
}

func (st *Storage) newBadgerEntry(key, val []byte) *badger.Entry {
	entry := badger.NewEntry(key, val)
	if st.ttl > 0 {
		entry = entry.WithTTL(st.ttl)
	}
	return entry
}

// profile primary key profilePrefix<pid>
func createProfilePK(pid profile.ID) []byte {
	key := make([]byte, 0, 1+len(pid))
	key = append(key, profilePrefix)
	return append(key, pid...)
}

// meta primary key metaPrefix<pid>
func createMetaPK(pid profile.ID) []byte {
	key := make([]byte, 0, 1+len(pid))
	key = append(key, metaPrefix)
	return append(key, pid...)
}

// meta value is json-encoded
func createMetaKV(meta profile.Meta) ([]byte, []byte, error) {
	val, err := json.Marshal(meta)
	return createMetaPK(meta.ProfileID), val, err
}

// index key <index-id><index-val><created-at><pid>
func createIndexKey(indexID byte, indexVal []byte, pid profile.ID, createdAt int64) []byte {
	var buf bytes.Buffer
	buf.WriteByte(indexID)
	buf.Write(indexVal)
	binary.Write(&buf, binary.BigEndian, createdAt)
	buf.Write(pid)
	return buf.Bytes()
}

func (st *Storage) OpenProfile(ctx context.Context, pid profile.ID) (io.ReadCloser, profile.Meta, error) {
	var (
		meta profile.Meta
		data []byte
	)
	err := st.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(createMetaPK(pid))
		if err != nil {
			return err
		}
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
		if err != nil {
			return xerrors.Errorf("could not decode meta of %s: %w", pid, err)
		}

		item, err = txn.Get(createProfilePK(pid))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, profile.Meta{}, storage.ErrNotFound
	} else if err != nil {
		return nil, profile.Meta{}, err
	}

	return ioutil.NopCloser(bytes.NewReader(data)), meta, nil
}

func (st *Storage) FindProfiles(ctx context.Context, params *storage.FindProfilesParams) ([]profile.Meta, error) {
	pids, err := st.FindProfileIDs(ctx, params)
	if err != nil {
		return nil, err
	}

	metas := make([]profile.Meta, 0, len(pids))

	err = st.db.View(func(txn *badger.Txn) error {
		for _, pid := range pids {
			pk := createMetaPK(pid)
			st.logger.Debugw("findProfiles: get meta", "pid", pid, "pk", pk)

			item, err := txn.Get(pk)
			if err == badger.ErrKeyNotFound {
				// expired between the index scan and now
				continue
			} else if err != nil {
				return err
			}

			var meta profile.Meta
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				return err
			}
			metas = append(metas, meta)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, storage.ErrNotFound
	}

	return metas, nil
}

func (st *Storage) FindProfileIDs(ctx context.Context, params *storage.FindProfilesParams) ([]profile.ID, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	createdAtMax := params.CreatedAtMax
	if createdAtMax.IsZero() {
		createdAtMax = time.Now().UTC()
	}

	indexesToScan := make([][]byte, 0, 1+len(params.Labels))
	{
		indexKey := make([]byte, 0, 64)
		if params.Type != profile.TypeUnknown {
			// by-service-type
			indexKey = append(indexKey, typeIndexID)
			indexKey = append(indexKey, params.Service...)
			indexKey = append(indexKey, byte(params.Type))
		} else {
			// by-service
			indexKey = append(indexKey, serviceIndexID)
			indexKey = append(indexKey, params.Service...)
		}

		indexesToScan = append(indexesToScan, indexKey)

		// by-service-labels
		for _, label := range params.Labels {
			indexKey := make([]byte, 0, 2+len(params.Service)+len(label.Key)+len(label.Value))
			indexKey = append(indexKey, labelsIndexID)
			indexKey = append(indexKey, params.Service...)
			indexKey = append(indexKey, label.Key...)
			indexKey = append(indexKey, labelSep)
			indexKey = append(indexKey, label.Value...)
			indexesToScan = append(indexesToScan, indexKey)
		}
	}

	ids := make([][]profile.ID, 0, len(indexesToScan))

	// scan prepared indexes
	for i, s := range indexesToScan {
		keys, err := st.scanIndexKeys(s, params.CreatedAtMin, createdAtMax)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, storage.ErrNotFound
		}

		ids = append(ids, make([]profile.ID, 0, len(keys)))
		for _, k := range keys {
			pid := k[len(k)-sizeOfProfileID:]
			ids[i] = append(ids[i], pid)
		}
	}

	merged := intersectProfileIDs(ids, params.Limit)
	if len(merged) == 0 {
		return nil, storage.ErrNotFound
	}
	return merged, nil
}

func (st *Storage) scanIndexKeys(indexKey []byte, createdAtMin, createdAtMax time.Time) (keys [][]byte, err error) {
	createdAtBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(createdAtBytes, uint64(createdAtMin.UnixNano()))

	err = st.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // we're iterating over keys only

		// key to start scan from
		key := append([]byte{}, indexKey...)
		key = append(key, createdAtBytes...)

		it := txn.NewIterator(opts)
		defer it.Close()

		st.logger.Debugw("scanIndexKeys", "key", key)

		for it.Seek(key); scanIteratorValid(it, indexKey, createdAtMax.UnixNano()); it.Next() {
			item := it.Item()

			// check if item's key chunk before the timestamp is equal indexKey
			tsStartPos := len(item.Key()) - sizeOfProfileID - 8
			if bytes.Equal(indexKey, item.Key()[:tsStartPos]) {
				keys = append(keys, item.KeyCopy(nil))
			}
		}
		return nil
	})

	return keys, err
}

func scanIteratorValid(it *badger.Iterator, prefix []byte, tsMax int64) bool {
	if !it.ValidForPrefix(prefix) {
		return false
	}

	// parse created-at from item's key
	tsPos := len(it.Item().Key()) - sizeOfProfileID - 8 // 8 is for created-at nanos
	ts := binary.BigEndian.Uint64(it.Item().Key()[tsPos:])

	return ts <= uint64(tsMax)
}

// intersectProfileIDs keeps the ids of the first list that are present in every other
// list. Lists are ordered by creation time; the result is limited and newest first.
func intersectProfileIDs(ids [][]profile.ID, limit int) []profile.ID {
	res := ids[0]
	for _, other := range ids[1:] {
		set := make(map[string]struct{}, len(other))
		for _, pid := range other {
			set[string(pid)] = struct{}{}
		}

		kept := make([]profile.ID, 0, len(res))
		for _, pid := range res {
			if _, ok := set[string(pid)]; ok {
				kept = append(kept, pid)
			}
		}
		res = kept
	}

	if limit > 0 && len(res) > limit {
		res = res[len(res)-limit:]
	}
	reverseIDs(res)

	return res
}

func reverseIDs(ids []profile.ID) {
	for left, right := 0, len(ids)-1; left < right; left, right = left+1, right-1 {
		ids[left], ids[right] = ids[right], ids[left]
	}
}

func (st *Storage) ListServices(ctx context.Context) ([]string, error) {
	services := st.cache.Services()
	if len(services) == 0 {
		return nil, storage.ErrNotFound
	}
	return services, nil
}
