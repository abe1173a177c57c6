package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"github.com/peplink-community/peplink-agent/internal/entities"
	"github.com/peplink-community/peplink-agent/internal/errs"
)

const identityKeyPrefix = "identity/"

// Service persists router identities in the embedded store so a device keeps
// its serial and friendly name across agent restarts and router outages.
type Service struct {
	db *badger.DB
}

func NewService(db *badger.DB) *Service {
	return &Service{db: db}
}

func (s *Service) SaveIdentity(identity entities.RouterIdentity) error {
	payload, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("SaveIdentity: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(identityKey(identity.Host), payload)
	})
	if err != nil {
		return fmt.Errorf("SaveIdentity: %w", err)
	}

	log.Debug().Str("host", identity.Host).Str("serial", identity.SerialNumber).Msg("SaveIdentity: stored")
	return nil
}

func (s *Service) LoadIdentity(host string) (identity entities.RouterIdentity, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(identityKey(host))
		if err != nil {
			return err
		}

		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &identity)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return identity, fmt.Errorf("LoadIdentity: %s: %w", host, errs.ErrIdentityNotFound)
	}
	if err != nil {
		return identity, fmt.Errorf("LoadIdentity: %w", err)
	}

	return identity, nil
}

// ListIdentities returns every known router, reachable or not.
func (s *Service) ListIdentities() (identities []entities.RouterIdentity, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(identityKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var identity entities.RouterIdentity
				if err := json.Unmarshal(value, &identity); err != nil {
					return err
				}

				identities = append(identities, identity)
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ListIdentities: %w", err)
	}

	return identities, nil
}

func identityKey(host string) []byte {
	return []byte(identityKeyPrefix + host)
}
