// Package backup exports and imports alarm records as YAML.
package backup

import (
	"context"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ursineenterprises/koom/internal/alarm"
	"github.com/ursineenterprises/koom/internal/db"
)

// Version is the backup format version written by Export.
const Version = 1

// File is the on-disk backup document.
type File struct {
	Version    int              `yaml:"version"`
	ExportedAt time.Time        `yaml:"exported_at"`
	Alarms     []db.AlarmRecord `yaml:"alarms"`
}

// Export writes every alarm to w.
func Export(ctx context.Context, svc *alarm.Service, w io.Writer, now time.Time) (int, error) {
	alarms, err := svc.List(ctx)
	if err != nil {
		return 0, err
	}
	if alarms == nil {
		alarms = []db.AlarmRecord{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Version: Version, ExportedAt: now.UTC(), Alarms: alarms}); err != nil {
		return 0, fmt.Errorf("encode backup: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("encode backup: %w", err)
	}
	return len(alarms), nil
}

// Import reads a backup from r and saves each record through the service,
// so every record is validated. Records keep their ids; an existing alarm
// with the same id is overwritten. Import stops at the first invalid record.
func Import(ctx context.Context, svc *alarm.Service, r io.Reader) (int, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return 0, fmt.Errorf("decode backup: %w", err)
	}
	if f.Version > Version {
		return 0, fmt.Errorf("backup version %d is newer than supported version %d", f.Version, Version)
	}

	for i, rec := range f.Alarms {
		if _, err := svc.CreateOrUpdate(ctx, alarm.RequestFromRecord(rec)); err != nil {
			return i, fmt.Errorf("alarm %d (%s): %w", i+1, rec.ID, err)
		}
	}
	return len(f.Alarms), nil
}
