package storage

import (
	"encoding/json"
	"errors"

	"htmsim/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion stamps new records.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRecording(r model.Recording) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRecording(data []byte) (model.Recording, error) {
	var recording model.Recording
	if err := json.Unmarshal(data, &recording); err != nil {
		return model.Recording{}, err
	}
	if err := checkVersion(recording.VersionedRecord); err != nil {
		return model.Recording{}, err
	}
	return recording, nil
}

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeTickHistory(history []model.TickStats) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeTickHistory(data []byte) ([]model.TickStats, error) {
	var history []model.TickStats
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
