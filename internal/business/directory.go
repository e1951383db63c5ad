package business

import (
	"context"
	"slices"
	"sync"

	"hoodlink/internal/models"
	"hoodlink/internal/observability"
	"hoodlink/internal/realtime"
	"hoodlink/internal/socketio"
)

// Directory is the list of all businesses.
type Directory struct {
	api API
	log *observability.SyncLogger

	mu   sync.RWMutex
	list []models.Business
}

// NewDirectory creates an empty directory.
func NewDirectory(client API) *Directory {
	return &Directory{api: client, log: observability.NewSyncLogger("directory")}
}

// Load replaces the directory with the server list.
func (d *Directory) Load(ctx context.Context) error {
	list, err := d.api.Businesses(ctx)
	if err != nil {
		d.log.LogError(ctx, "load_directory", "", err)
		return err
	}
	d.mu.Lock()
	d.list = list
	d.mu.Unlock()
	return nil
}

// List returns a copy of the directory.
func (d *Directory) List() []models.Business {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.list)
}

// HandleNew appends b unless a business with its id is listed.
func (d *Directory) HandleNew(b models.Business) bool {
	if b.ID.Empty() {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if slices.ContainsFunc(d.list, func(x models.Business) bool { return x.ID == b.ID }) {
		return false
	}
	d.list = append(d.list, b)
	return true
}

// Attach subscribes new_business.
func (d *Directory) Attach(rt realtime.Subscriber) (detach func()) {
	return rt.On(models.EventNewBusiness, func(ctx context.Context, ev socketio.Event) {
		var b models.Business
		if err := ev.Decode(&b); err != nil {
			d.log.LogError(ctx, ev.Name, "", err)
			return
		}
		d.HandleNew(b)
	})
}
