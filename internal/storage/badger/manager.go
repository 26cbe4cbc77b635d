package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/leadforge/internal/common"
	"github.com/ternarybob/leadforge/internal/interfaces"
)

// Manager implements interfaces.StorageManager for Badger.
type Manager struct {
	db    *BadgerDB
	job   interfaces.JobStore
	kv    interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewManager opens the Badger database and wires up its sub-stores.
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		job:    NewJobStore(db, logger),
		kv:     NewKVStorage(db, logger),
		logger: logger,
	}

	logger.Info().Msg("Badger storage manager initialized")
	return manager, nil
}

func (m *Manager) JobStore() interfaces.JobStore { return m.job }

func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage { return m.kv }

func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
