package views

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"Trainer-Console/server/internal/interfaces"
	"Trainer-Console/server/internal/models"
)

// BackupState is what the backup/save settings form renders.
type BackupState struct {
	BackupAfter        int             `json:"backup_after"`
	BackupAfterUnit    models.TimeUnit `json:"backup_after_unit"`
	RollingBackup      bool            `json:"rolling_backup"`
	RollingBackupCount int             `json:"rolling_backup_count"`
	BackupBeforeSave   bool            `json:"backup_before_save"`
	SaveEvery          int             `json:"save_every"`
	SaveEveryUnit      models.TimeUnit `json:"save_every_unit"`
}

type fieldKind int

const (
	intField fieldKind = iota
	boolField
	unitField
	stringField
)

type fieldSpec struct {
	kind fieldKind
	def  interface{}
}

var backupFields = map[string]fieldSpec{
	models.KeyBackupAfter:        {intField, 30},
	models.KeyBackupAfterUnit:    {unitField, models.TimeUnitMinute},
	models.KeyRollingBackup:      {boolField, false},
	models.KeyRollingBackupCount: {intField, 3},
	models.KeyBackupBeforeSave:   {boolField, true},
	models.KeySaveEvery:          {intField, 0},
	models.KeySaveEveryUnit:      {unitField, models.TimeUnitNever},
}

// BackupView edits the backup and save cadence and triggers immediate
// backups or saves.
type BackupView struct {
	store   ConfigStore
	trainer interfaces.TrainingBackend
	actions actionLog
	log     *logrus.Entry
}

func NewBackupView(store ConfigStore, trainer interfaces.TrainingBackend, recorder interfaces.ActionRecorder, log *logrus.Entry) *BackupView {
	return &BackupView{
		store:   store,
		trainer: trainer,
		actions: actionLog{recorder: recorder, log: log},
		log:     log,
	}
}

// State reads the seven fields, applying defaults for absent ones.
func (v *BackupView) State() BackupState {
	cfg := v.store.Read()
	return BackupState{
		BackupAfter:        cfg.Int(models.KeyBackupAfter, 30),
		BackupAfterUnit:    unitOr(cfg, models.KeyBackupAfterUnit, models.TimeUnitMinute),
		RollingBackup:      cfg.Bool(models.KeyRollingBackup, false),
		RollingBackupCount: cfg.Int(models.KeyRollingBackupCount, 3),
		BackupBeforeSave:   cfg.Bool(models.KeyBackupBeforeSave, true),
		SaveEvery:          cfg.Int(models.KeySaveEvery, 0),
		SaveEveryUnit:      unitOr(cfg, models.KeySaveEveryUnit, models.TimeUnitNever),
	}
}

// SetField coerces one edited field and writes exactly that key.
func (v *BackupView) SetField(name string, raw interface{}) error {
	spec, ok := backupFields[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	var value interface{}
	switch spec.kind {
	case intField:
		value = parseIntOr(raw, spec.def.(int))
	case boolField:
		value = parseBoolOr(raw, spec.def.(bool))
	case unitField:
		u, err := parseTimeUnit(raw)
		if err != nil {
			return err
		}
		value = string(u)
	}

	v.store.Update(map[string]interface{}{name: value})
	return nil
}

// BackupNow asks the trainer for an immediate backup. Failures are only logged.
func (v *BackupView) BackupNow(ctx context.Context) {
	v.trigger(ctx, "backup", v.trainer.Backup)
}

// SaveNow asks the trainer for an immediate save. Failures are only logged.
func (v *BackupView) SaveNow(ctx context.Context) {
	v.trigger(ctx, "save", v.trainer.Save)
}

func (v *BackupView) trigger(ctx context.Context, action string, call func(context.Context) error) {
	start := time.Now()
	err := call(ctx)
	v.actions.record(ctx, action, "", start, err)
	if err != nil {
		if v.log != nil {
			v.log.WithError(err).Warnf("%s now failed", action)
		}
		return
	}
	if v.log != nil {
		v.log.Infof("%s now requested", action)
	}
}

func unitOr(cfg models.TrainingConfig, key string, def models.TimeUnit) models.TimeUnit {
	u, err := models.ParseTimeUnit(cfg.String(key, string(def)))
	if err != nil {
		return def
	}
	return u
}
