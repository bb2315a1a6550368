package storage

import (
	"encoding/json"
	"errors"

	"driftlab/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeBatch(b model.BatchRecord) ([]byte, error) {
	return json.Marshal(b)
}

func DecodeBatch(data []byte) (model.BatchRecord, error) {
	var batch model.BatchRecord
	if err := json.Unmarshal(data, &batch); err != nil {
		return model.BatchRecord{}, err
	}
	if err := checkVersion(batch.VersionedRecord); err != nil {
		return model.BatchRecord{}, err
	}
	return batch, nil
}

func EncodeTrajectories(tracks []model.TrajectoryRecord) ([]byte, error) {
	return json.Marshal(tracks)
}

func DecodeTrajectories(data []byte) ([]model.TrajectoryRecord, error) {
	var tracks []model.TrajectoryRecord
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

func EncodeModelSummary(s model.ModelSummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeModelSummary(data []byte) (model.ModelSummary, error) {
	var summary model.ModelSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.ModelSummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.ModelSummary{}, err
	}
	return summary, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
