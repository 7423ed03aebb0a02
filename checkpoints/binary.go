package checkpoints

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// The binary format is protobuf wire encoding with the field numbers below.
// Unknown fields are skipped so newer writers stay readable.
const (
	fieldCheckpointLRDecay   protowire.Number = 1
	fieldCheckpointEarlyStop protowire.Number = 2
	fieldCheckpointMetadata  protowire.Number = 3

	fieldLRPatience     protowire.Number = 1
	fieldLRMinLR        protowire.Number = 2
	fieldLRFactor       protowire.Number = 3
	fieldLRThreshold    protowire.Number = 4
	fieldLRCooldown     protowire.Number = 5
	fieldLRLearningRate protowire.Number = 6
	fieldLRPlateau      protowire.Number = 7

	fieldPlateauBest       protowire.Number = 1
	fieldPlateauHasBest    protowire.Number = 2
	fieldPlateauBadEpochs  protowire.Number = 3
	fieldPlateauCooldown   protowire.Number = 4
	fieldPlateauLastEpoch  protowire.Number = 5
	fieldPlateauReductions protowire.Number = 6

	fieldESPatience     protowire.Number = 1
	fieldESMinDelta     protowire.Number = 2
	fieldESBest         protowire.Number = 3
	fieldESHasBest      protowire.Number = 4
	fieldESCounter      protowire.Number = 5
	fieldESStopped      protowire.Number = 6
	fieldESEpochs       protowire.Number = 7
	fieldESStoppedEpoch protowire.Number = 8

	fieldMetaVersion     protowire.Number = 1
	fieldMetaFramework   protowire.Number = 2
	fieldMetaCreatedAt   protowire.Number = 3
	fieldMetaDescription protowire.Number = 4
)

func appendInt(b []byte, num protowire.Number, v int) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v)))
}

func appendFloat(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func marshalBinary(c *Checkpoint) []byte {
	var b []byte
	if c.LRDecay != nil {
		b = appendMessage(b, fieldCheckpointLRDecay, marshalLRDecay(c.LRDecay))
	}
	if c.EarlyStop != nil {
		b = appendMessage(b, fieldCheckpointEarlyStop, marshalEarlyStop(c.EarlyStop))
	}
	return appendMessage(b, fieldCheckpointMetadata, marshalMetadata(&c.Metadata))
}

func marshalLRDecay(s *LRDecayState) []byte {
	var b []byte
	b = appendInt(b, fieldLRPatience, s.Patience)
	b = appendFloat(b, fieldLRMinLR, s.MinLR)
	b = appendFloat(b, fieldLRFactor, s.Factor)
	b = appendFloat(b, fieldLRThreshold, s.Threshold)
	b = appendInt(b, fieldLRCooldown, s.Cooldown)
	b = appendFloat(b, fieldLRLearningRate, s.LearningRate)
	return appendMessage(b, fieldLRPlateau, marshalPlateau(&s.Plateau))
}

func marshalPlateau(s *PlateauState) []byte {
	var b []byte
	b = appendFloat(b, fieldPlateauBest, s.BestMetric)
	b = appendBool(b, fieldPlateauHasBest, s.HasBest)
	b = appendInt(b, fieldPlateauBadEpochs, s.BadEpochs)
	b = appendInt(b, fieldPlateauCooldown, s.CooldownCounter)
	b = appendInt(b, fieldPlateauLastEpoch, s.LastEpoch)
	return appendInt(b, fieldPlateauReductions, s.Reductions)
}

func marshalEarlyStop(s *EarlyStopState) []byte {
	var b []byte
	b = appendInt(b, fieldESPatience, s.Patience)
	b = appendFloat(b, fieldESMinDelta, s.MinDelta)
	b = appendFloat(b, fieldESBest, s.Best)
	b = appendBool(b, fieldESHasBest, s.HasBest)
	b = appendInt(b, fieldESCounter, s.Counter)
	b = appendBool(b, fieldESStopped, s.Stopped)
	b = appendInt(b, fieldESEpochs, s.Epochs)
	return appendInt(b, fieldESStoppedEpoch, s.StoppedEpoch)
}

func marshalMetadata(m *CheckpointMetadata) []byte {
	var b []byte
	b = appendString(b, fieldMetaVersion, m.Version)
	b = appendString(b, fieldMetaFramework, m.Framework)
	b = protowire.AppendTag(b, fieldMetaCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.CreatedAt.UnixNano()))
	if m.Description != "" {
		b = appendString(b, fieldMetaDescription, m.Description)
	}
	return b
}

// fieldFunc decodes one field value and returns the bytes it consumed.
// Returning 0 marks the field as unknown.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func consumeMessage(b []byte, field fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := field(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
		}
		b = b[n:]
	}
	return nil
}

func readVarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("wire type %d, expected varint", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func readInt(typ protowire.Type, b []byte, dst *int) (int, error) {
	v, n, err := readVarint(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = int(protowire.DecodeZigZag(v))
	return n, nil
}

func readBool(typ protowire.Type, b []byte, dst *bool) (int, error) {
	v, n, err := readVarint(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = protowire.DecodeBool(v)
	return n, nil
}

func readFloat(typ protowire.Type, b []byte, dst *float64) (int, error) {
	if typ != protowire.Fixed64Type {
		return 0, fmt.Errorf("wire type %d, expected fixed64", typ)
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = math.Float64frombits(v)
	return n, nil
}

func readBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("wire type %d, expected bytes", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func readString(typ protowire.Type, b []byte, dst *string) (int, error) {
	v, n, err := readBytes(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = string(v)
	return n, nil
}

func unmarshalBinary(b []byte, c *Checkpoint) error {
	return consumeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldCheckpointLRDecay:
			msg, n, err := readBytes(typ, b)
			if err != nil {
				return 0, err
			}
			c.LRDecay = &LRDecayState{}
			return n, unmarshalLRDecay(msg, c.LRDecay)
		case fieldCheckpointEarlyStop:
			msg, n, err := readBytes(typ, b)
			if err != nil {
				return 0, err
			}
			c.EarlyStop = &EarlyStopState{}
			return n, unmarshalEarlyStop(msg, c.EarlyStop)
		case fieldCheckpointMetadata:
			msg, n, err := readBytes(typ, b)
			if err != nil {
				return 0, err
			}
			return n, unmarshalMetadata(msg, &c.Metadata)
		}
		return 0, nil
	})
}

func unmarshalLRDecay(b []byte, s *LRDecayState) error {
	return consumeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldLRPatience:
			return readInt(typ, b, &s.Patience)
		case fieldLRMinLR:
			return readFloat(typ, b, &s.MinLR)
		case fieldLRFactor:
			return readFloat(typ, b, &s.Factor)
		case fieldLRThreshold:
			return readFloat(typ, b, &s.Threshold)
		case fieldLRCooldown:
			return readInt(typ, b, &s.Cooldown)
		case fieldLRLearningRate:
			return readFloat(typ, b, &s.LearningRate)
		case fieldLRPlateau:
			msg, n, err := readBytes(typ, b)
			if err != nil {
				return 0, err
			}
			return n, unmarshalPlateau(msg, &s.Plateau)
		}
		return 0, nil
	})
}

func unmarshalPlateau(b []byte, s *PlateauState) error {
	return consumeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldPlateauBest:
			return readFloat(typ, b, &s.BestMetric)
		case fieldPlateauHasBest:
			return readBool(typ, b, &s.HasBest)
		case fieldPlateauBadEpochs:
			return readInt(typ, b, &s.BadEpochs)
		case fieldPlateauCooldown:
			return readInt(typ, b, &s.CooldownCounter)
		case fieldPlateauLastEpoch:
			return readInt(typ, b, &s.LastEpoch)
		case fieldPlateauReductions:
			return readInt(typ, b, &s.Reductions)
		}
		return 0, nil
	})
}

func unmarshalEarlyStop(b []byte, s *EarlyStopState) error {
	return consumeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldESPatience:
			return readInt(typ, b, &s.Patience)
		case fieldESMinDelta:
			return readFloat(typ, b, &s.MinDelta)
		case fieldESBest:
			return readFloat(typ, b, &s.Best)
		case fieldESHasBest:
			return readBool(typ, b, &s.HasBest)
		case fieldESCounter:
			return readInt(typ, b, &s.Counter)
		case fieldESStopped:
			return readBool(typ, b, &s.Stopped)
		case fieldESEpochs:
			return readInt(typ, b, &s.Epochs)
		case fieldESStoppedEpoch:
			return readInt(typ, b, &s.StoppedEpoch)
		}
		return 0, nil
	})
}

func unmarshalMetadata(b []byte, m *CheckpointMetadata) error {
	return consumeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldMetaVersion:
			return readString(typ, b, &m.Version)
		case fieldMetaFramework:
			return readString(typ, b, &m.Framework)
		case fieldMetaCreatedAt:
			v, n, err := readVarint(typ, b)
			if err != nil {
				return 0, err
			}
			m.CreatedAt = time.Unix(0, protowire.DecodeZigZag(v))
			return n, nil
		case fieldMetaDescription:
			return readString(typ, b, &m.Description)
		}
		return 0, nil
	})
}
