package cache

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// TypedStore is a msgpack view over one bbolt bucket.
type TypedStore[T any] struct {
	db     *bolt.DB
	bucket []byte
}

func NewTypedStore[T any](db *bolt.DB, bucket string) *TypedStore[T] {
	return &TypedStore[T]{db: db, bucket: []byte(bucket)}
}

// Get returns nil, nil when key is absent.
func (s *TypedStore[T]) Get(key string) (*T, error) {
	var result *T
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("bucket %s not found", s.bucket)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		var item T
		if err := Decode(data, &item); err != nil {
			return fmt.Errorf("decode %s/%s: %w", s.bucket, key, err)
		}
		result = &item
		return nil
	})
	return result, err
}

func (s *TypedStore[T]) Put(key string, value *T) error {
	data, err := Encode(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

func (s *TypedStore[T]) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// ForEach visits every decodable value. Corrupt entries are passed to onCorrupt.
func (s *TypedStore[T]) ForEach(fn func(key string, v *T) error, onCorrupt func(key string, err error)) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, data []byte) error {
			var item T
			if err := Decode(data, &item); err != nil {
				if onCorrupt != nil {
					onCorrupt(string(k), err)
				}
				return nil
			}
			return fn(string(k), &item)
		})
	})
}
