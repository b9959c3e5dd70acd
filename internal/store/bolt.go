package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"volunteerhub/internal/models"
)

var (
	bucketEvents        = []byte("events")
	bucketRegistrations = []byte("registrations")     // eventID \x00 seq -> registration
	bucketRegIndex      = []byte("registration_index") // eventID \x00 volunteerID -> registrations key
	bucketAccounts      = []byte("accounts")
	bucketAccountEmails = []byte("account_emails") // email -> account id
)

// BoltStore implements Store on an embedded bbolt file. Write transactions are
// serialized by bbolt, which makes every read-check-write below atomic.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database file at path
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{
			bucketEvents,
			bucketRegistrations,
			bucketRegIndex,
			bucketAccounts,
			bucketAccountEmails,
		} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func pairKey(a, b string) []byte {
	return []byte(a + "\x00" + b)
}

func getJSON(b *bolt.Bucket, key []byte, v any) error {
	data := b.Get(key)
	if data == nil {
		return ErrNotFound
	}
	return json.Unmarshal(data, v)
}

func putJSON(b *bolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

// updateEvent loads an event, applies fn and writes it back in one transaction
func (s *BoltStore) updateEvent(ctx context.Context, id string, fn func(*models.Event) error) (*models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var event models.Event
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		if err := getJSON(b, []byte(id), &event); err != nil {
			return err
		}
		if err := fn(&event); err != nil {
			return err
		}
		return putJSON(b, []byte(id), &event)
	})
	return &event, err
}

// Event operations
func (s *BoltStore) CreateEvent(ctx context.Context, event *models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	event.InitCollections()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		if b.Get([]byte(event.ID)) != nil {
			return ErrDuplicate
		}
		return putJSON(b, []byte(event.ID), event)
	})
}

func (s *BoltStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var event models.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(bucketEvents), []byte(id), &event)
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *BoltStore) ListEvents(ctx context.Context, filter EventFilter) ([]*models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	events := []*models.Event{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEvents).ForEach(func(k, v []byte) error {
			var event models.Event
			if err := json.Unmarshal(v, &event); err != nil {
				return err
			}
			if filter.Status != "" && event.Status != filter.Status {
				return nil
			}
			if filter.CreatorID != "" && event.CreatorID != filter.CreatorID {
				return nil
			}
			if !filter.StartsAfter.IsZero() && !event.StartDate.After(filter.StartsAfter) {
				return nil
			}
			events = append(events, &event)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartDate.Before(events[j].StartDate)
	})
	return events, nil
}

func (s *BoltStore) UpdateEventStatus(ctx context.Context, id string, from, to models.EventStatus) (*models.Event, error) {
	event, err := s.updateEvent(ctx, id, func(e *models.Event) error {
		if e.Status != from {
			return ErrStatusMismatch
		}
		e.Status = to
		e.UpdatedAt = time.Now()
		return nil
	})
	if err == ErrNotFound {
		return nil, err
	}
	return event, err
}

func (s *BoltStore) RescheduleEvent(ctx context.Context, id string, start, end time.Time) (*models.Event, error) {
	event, err := s.updateEvent(ctx, id, func(e *models.Event) error {
		if e.Status != models.StatusApproved {
			return ErrStatusMismatch
		}
		e.StartDate = start
		e.EndDate = end
		e.RemindersSent = nil
		e.InitCollections()
		e.UpdatedAt = time.Now()
		return nil
	})
	if err == ErrNotFound {
		return nil, err
	}
	return event, err
}

func (s *BoltStore) DeleteEvent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		events := tx.Bucket(bucketEvents)
		if events.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		if err := events.Delete([]byte(id)); err != nil {
			return err
		}

		// Cascade: collect first, bbolt cursors must not be mutated while iterating
		prefix := []byte(id + "\x00")
		for _, bucket := range [][]byte{bucketRegistrations, bucketRegIndex} {
			b := tx.Bucket(bucket)
			var keys [][]byte
			c := b.Cursor()
			for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
				keys = append(keys, append([]byte(nil), k...))
			}
			for _, k := range keys {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *BoltStore) AddRegistrant(ctx context.Context, eventID, volunteerID string) error {
	_, err := s.updateEvent(ctx, eventID, func(e *models.Event) error {
		if !e.HasRegistrant(volunteerID) {
			e.Registrants = append(e.Registrants, volunteerID)
		}
		return nil
	})
	return err
}

func (s *BoltStore) RemoveRegistrant(ctx context.Context, eventID, volunteerID string) error {
	_, err := s.updateEvent(ctx, eventID, func(e *models.Event) error {
		e.Registrants = without(e.Registrants, volunteerID)
		return nil
	})
	return err
}

func (s *BoltStore) AddLike(ctx context.Context, eventID, volunteerID string) error {
	_, err := s.updateEvent(ctx, eventID, func(e *models.Event) error {
		if !e.LikedBy(volunteerID) {
			e.Likes = append(e.Likes, volunteerID)
		}
		return nil
	})
	return err
}

func (s *BoltStore) RemoveLike(ctx context.Context, eventID, volunteerID string) error {
	_, err := s.updateEvent(ctx, eventID, func(e *models.Event) error {
		e.Likes = without(e.Likes, volunteerID)
		return nil
	})
	return err
}

func (s *BoltStore) AddComment(ctx context.Context, eventID string, comment models.Comment) error {
	_, err := s.updateEvent(ctx, eventID, func(e *models.Event) error {
		e.Comments = append(e.Comments, comment)
		return nil
	})
	return err
}

func (s *BoltStore) MarkReminderSent(ctx context.Context, eventID string, dispatch models.ReminderDispatch) (bool, error) {
	claimed := false
	_, err := s.updateEvent(ctx, eventID, func(e *models.Event) error {
		if e.ReminderSent(dispatch.OffsetDays) {
			return nil
		}
		e.RemindersSent = append(e.RemindersSent, dispatch)
		claimed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// Registration operations
func (s *BoltStore) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(bucketRegIndex)
		indexKey := pairKey(reg.EventID, reg.VolunteerID)
		if index.Get(indexKey) != nil {
			return ErrDuplicate
		}

		b := tx.Bucket(bucketRegistrations)
		// A restored registration keeps its original position
		if reg.Seq == 0 {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			reg.Seq = int64(seq)
		}
		key := regKey(reg.EventID, reg.Seq)

		if err := putJSON(b, key, reg); err != nil {
			return err
		}
		return index.Put(indexKey, key)
	})
}

func regKey(eventID string, seq int64) []byte {
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], uint64(seq))
	return pairKey(eventID, string(seqBytes[:]))
}

// regSeq recovers the sequence from a registration key
func regSeq(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[len(key)-8:]))
}

func (s *BoltStore) GetRegistration(ctx context.Context, eventID, volunteerID string) (*models.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var reg models.Registration
	err := s.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket(bucketRegIndex).Get(pairKey(eventID, volunteerID))
		if key == nil {
			return ErrNotFound
		}
		if err := getJSON(tx.Bucket(bucketRegistrations), key, &reg); err != nil {
			return err
		}
		reg.Seq = regSeq(key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (s *BoltStore) ListRegistrations(ctx context.Context, eventID string) ([]*models.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	regs := []*models.Registration{}
	prefix := []byte(eventID + "\x00")
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRegistrations).Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var reg models.Registration
			if err := json.Unmarshal(v, &reg); err != nil {
				return err
			}
			reg.Seq = regSeq(k)
			regs = append(regs, &reg)
		}
		return nil
	})
	return regs, err
}

func (s *BoltStore) UpdateRegistrationNotify(ctx context.Context, eventID, volunteerID string, notify bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		key := tx.Bucket(bucketRegIndex).Get(pairKey(eventID, volunteerID))
		if key == nil {
			return ErrNotFound
		}
		b := tx.Bucket(bucketRegistrations)
		var reg models.Registration
		if err := getJSON(b, key, &reg); err != nil {
			return err
		}
		reg.Notify = notify
		return putJSON(b, key, &reg)
	})
}

func (s *BoltStore) DeleteRegistration(ctx context.Context, eventID, volunteerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(bucketRegIndex)
		indexKey := pairKey(eventID, volunteerID)
		key := index.Get(indexKey)
		if key == nil {
			return ErrNotFound
		}
		if err := tx.Bucket(bucketRegistrations).Delete(key); err != nil {
			return err
		}
		return index.Delete(indexKey)
	})
}

// Account operations
func (s *BoltStore) UpsertAccount(ctx context.Context, account *models.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		accounts := tx.Bucket(bucketAccounts)
		emails := tx.Bucket(bucketAccountEmails)

		if owner := emails.Get([]byte(account.Email)); owner != nil && string(owner) != account.ID {
			return ErrDuplicate
		}

		now := time.Now()
		var existing models.Account
		switch err := getJSON(accounts, []byte(account.ID), &existing); err {
		case nil:
			account.CreatedAt = existing.CreatedAt
			if existing.Email != account.Email {
				if err := emails.Delete([]byte(existing.Email)); err != nil {
					return err
				}
			}
		case ErrNotFound:
			account.CreatedAt = now
		default:
			return err
		}
		account.UpdatedAt = now

		if err := putJSON(accounts, []byte(account.ID), account); err != nil {
			return err
		}
		return emails.Put([]byte(account.Email), []byte(account.ID))
	})
}

func (s *BoltStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var account models.Account
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(bucketAccounts), []byte(id), &account)
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *BoltStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var account models.Account
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketAccountEmails).Get([]byte(email))
		if id == nil {
			return ErrNotFound
		}
		return getJSON(tx.Bucket(bucketAccounts), id, &account)
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func without(list []string, v string) []string {
	out := list[:0:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
