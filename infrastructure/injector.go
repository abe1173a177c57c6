package infrastructure

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/peplink-community/peplink-agent/internal/environment"
)

type Kernel struct {
	env environment.Environment

	DB *badger.DB
}

func Inject(env environment.Environment) (k *Kernel, err error) {
	k = &Kernel{
		env: env,
	}

	options := badger.DefaultOptions(env.Agent.RegistryPath).
		WithLogger(nil).
		WithMemTableSize(64 << 17) // ~8MB

	if k.DB, err = badger.Open(options); err != nil {
		return k, fmt.Errorf("Inject: %w", err)
	}

	return k, nil
}
