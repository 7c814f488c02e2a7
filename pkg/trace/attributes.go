package trace

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys used throughout the application
const (
	// Rig attributes
	AttrRigName     = "rig.name"
	AttrCommandType = "command.type"
	AttrMode        = "command.mode"
	AttrTempo       = "command.tempo"
	AttrStrength    = "command.strength"

	// Audio attributes
	AttrAudioSampleRate = "audio.sample_rate"
	AttrAudioHopSize    = "audio.hop_size"
	AttrOnsetFired      = "onset.fired"
	AttrModeChange      = "onset.mode_change"

	// Control session attributes
	AttrSessionID   = "session.id"
	AttrRequestID   = "request.id"
	AttrRequestType = "request.type"
)

// RigAttrs creates attributes for a command sent to a rig
func RigAttrs(rig, commandType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRigName, rig),
		attribute.String(AttrCommandType, commandType),
	}
}

// AudioAttrs creates attributes for one analysed hop
func AudioAttrs(sampleRate, hopSize int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrAudioSampleRate, sampleRate),
		attribute.Int(AttrAudioHopSize, hopSize),
	}
}

// SessionAttrs creates attributes for a control session
func SessionAttrs(sessionID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrSessionID, sessionID),
	}
}
