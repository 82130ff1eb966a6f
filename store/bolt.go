package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"

	"taskwing/errors"
)

var (
	tasksBucket         = []byte("tasks")
	conversationsBucket = []byte("conversations")
	messagesBucket      = []byte("messages")
)

// BoltStore persists tasks, conversations and messages to a BoltDB
// file. IDs come from each bucket's sequence, so they start at 1 for an
// empty database and increase monotonically.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a BoltDB database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "opening database at %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{tasksBucket, conversationsBucket, messagesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "initializing buckets")
	}

	return &BoltStore{db: db}, nil
}

// ownerKey builds "userID/<8-byte big-endian id>". The fixed-width ID
// keeps prefix scans on "userID/" unambiguous.
func ownerKey(userID string, id int64) []byte {
	key := make([]byte, 0, len(userID)+9)
	key = append(key, userID...)
	key = append(key, '/')
	key = append(key, be64(id)...)
	return key
}

// messageKey builds "<conv id><msg id>", both 8-byte big-endian, so a
// cursor scan over one conversation yields messages in creation order.
func messageKey(conversationID, messageID int64) []byte {
	key := make([]byte, 0, 16)
	key = append(key, be64(conversationID)...)
	key = append(key, be64(messageID)...)
	return key
}

func be64(v int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return b[:]
}

// ---------- Tasks ----------

func (b *BoltStore) CreateTask(t *Task) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(tasksBucket)
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		t.ID = int64(seq)
		now := time.Now().UTC()
		t.CreatedAt = now
		t.UpdatedAt = now

		raw, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return bkt.Put(ownerKey(t.UserID, t.ID), raw)
	})
}

func (b *BoltStore) GetTask(userID string, id int64) (*Task, error) {
	var t Task
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(tasksBucket).Get(ownerKey(userID, id))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (b *BoltStore) ListTasks(userID string) ([]*Task, error) {
	var out []*Task
	err := b.db.View(func(tx *bolt.Tx) error {
		return scanOwner(tx.Bucket(tasksBucket), userID, func(raw []byte) error {
			var t Task
			if err := json.Unmarshal(raw, &t); err != nil {
				return err
			}
			out = append(out, &t)
			return nil
		})
	})
	return out, err
}

func (b *BoltStore) UpdateTask(t *Task) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(tasksBucket)
		key := ownerKey(t.UserID, t.ID)

		raw := bkt.Get(key)
		if raw == nil {
			return ErrNotFound
		}
		var existing Task
		if err := json.Unmarshal(raw, &existing); err != nil {
			return err
		}
		t.CreatedAt = existing.CreatedAt
		t.UpdatedAt = time.Now().UTC()

		updated, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return bkt.Put(key, updated)
	})
}

func (b *BoltStore) DeleteTask(userID string, id int64) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(tasksBucket)
		key := ownerKey(userID, id)
		if bkt.Get(key) == nil {
			return ErrNotFound
		}
		return bkt.Delete(key)
	})
}

// ---------- Conversations ----------

func (b *BoltStore) CreateConversation(c *Conversation) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(conversationsBucket)
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		c.ID = int64(seq)
		now := time.Now().UTC()
		c.CreatedAt = now
		c.UpdatedAt = now
		if c.Title == "" {
			c.Title = DefaultConversationTitle
		}

		raw, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return bkt.Put(ownerKey(c.UserID, c.ID), raw)
	})
}

func (b *BoltStore) GetConversation(userID string, id int64) (*Conversation, error) {
	var c Conversation
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(conversationsBucket).Get(ownerKey(userID, id))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (b *BoltStore) ListConversations(userID string) ([]*Conversation, error) {
	var out []*Conversation
	err := b.db.View(func(tx *bolt.Tx) error {
		return scanOwner(tx.Bucket(conversationsBucket), userID, func(raw []byte) error {
			var c Conversation
			if err := json.Unmarshal(raw, &c); err != nil {
				return err
			}
			out = append(out, &c)
			return nil
		})
	})
	return out, err
}

func (b *BoltStore) UpdateConversation(c *Conversation) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(conversationsBucket)
		key := ownerKey(c.UserID, c.ID)

		raw := bkt.Get(key)
		if raw == nil {
			return ErrNotFound
		}
		var existing Conversation
		if err := json.Unmarshal(raw, &existing); err != nil {
			return err
		}
		c.CreatedAt = existing.CreatedAt
		c.UpdatedAt = time.Now().UTC()

		updated, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return bkt.Put(key, updated)
	})
}

func (b *BoltStore) DeleteConversation(userID string, id int64) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		convs := tx.Bucket(conversationsBucket)
		key := ownerKey(userID, id)
		if convs.Get(key) == nil {
			return ErrNotFound
		}

		// Cascade: remove every message of the conversation first.
		msgs := tx.Bucket(messagesBucket)
		c := msgs.Cursor()
		prefix := be64(id)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if err := msgs.Delete(k); err != nil {
				return err
			}
		}

		return convs.Delete(key)
	})
}

// ---------- Messages ----------

func (b *BoltStore) AppendMessage(m *Message) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(messagesBucket)
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		m.ID = int64(seq)
		m.CreatedAt = time.Now().UTC()

		raw, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return bkt.Put(messageKey(m.ConversationID, m.ID), raw)
	})
}

func (b *BoltStore) ListMessages(conversationID int64) ([]*Message, error) {
	var out []*Message
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(messagesBucket).Cursor()
		prefix := be64(conversationID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var m Message
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			out = append(out, &m)
		}
		return nil
	})
	return out, err
}

func (b *BoltStore) CountMessages(conversationID int64) (int, error) {
	n := 0
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(messagesBucket).Cursor()
		prefix := be64(conversationID)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close releases the BoltDB file handle.
func (b *BoltStore) Close() error {
	return b.db.Close()
}

// scanOwner iterates every value under the "userID/" prefix.
func scanOwner(bkt *bolt.Bucket, userID string, fn func(raw []byte) error) error {
	c := bkt.Cursor()
	prefix := append([]byte(userID), '/')
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}
