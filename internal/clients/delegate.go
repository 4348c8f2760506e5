package clients

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/MKhiriev/weavesync/internal/prefs"
)

// Preference keys for the local device identity.
const (
	prefLocalClientGUID = "clients.local_guid"
	prefLocalClientName = "clients.local_name"
)

// DataDelegate tracks this device's identity and the in-memory count of
// known clients. The GUID is minted once and persisted; it must stay
// stable across sync attempts.
type DataDelegate struct {
	prefs *prefs.Store

	guid  string
	name  string
	count atomic.Int64
}

// NewDataDelegate loads (or mints and persists) the local device identity.
func NewDataDelegate(store *prefs.Store) (*DataDelegate, error) {
	d := &DataDelegate{prefs: store}

	guid, err := store.GetString(prefLocalClientGUID)
	if errors.Is(err, prefs.ErrNotFound) {
		guid = uuid.NewString()
		if err = store.SetString(prefLocalClientGUID, guid); err != nil {
			return nil, fmt.Errorf("persist local client guid: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load local client guid: %w", err)
	}
	d.guid = guid

	name, err := store.GetString(prefLocalClientName)
	if errors.Is(err, prefs.ErrNotFound) {
		name = defaultClientName()
		if err = store.SetString(prefLocalClientName, name); err != nil {
			return nil, fmt.Errorf("persist local client name: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load local client name: %w", err)
	}
	d.name = name

	return d, nil
}

func (d *DataDelegate) LocalClientGUID() string { return d.guid }

func (d *DataDelegate) LocalClientName() string { return d.name }

func (d *DataDelegate) ClientCount() int { return int(d.count.Load()) }

func (d *DataDelegate) SetClientCount(n int) { d.count.Store(int64(n)) }

// LocalDeviceType maps the build platform to the wire device type.
func LocalDeviceType() string {
	switch runtime.GOOS {
	case "android", "ios":
		return "mobile"
	default:
		return "desktop"
	}
}

func defaultClientName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	return "weavesync on " + host
}
