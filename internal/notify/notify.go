// Package notify builds notification payloads and enforces per-class
// cooldowns so repeated probes during one live window produce at most one
// user-visible notification.
//
// The package never renders anything: it decides content and timing and
// hands structured payloads to an Emitter for an external presenter.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// DeepLinkLive is the route the UI router maps to the live view.
	DeepLinkLive = "pbcc://live"

	// Payload type discriminators, consumed by the UI router.
	TypeLiveStream       = "live_stream"
	TypeScheduledService = "scheduled_service"
	TypeTest             = "test"

	PriorityHigh = "high"

	orgShortName = "PBCC"
)

// Class identifies a notification family for cooldown purposes.
type Class string

const (
	ClassLiveDetected      Class = "live_detected"
	ClassScheduledReminder Class = "scheduled_reminder"
	ClassTest              Class = "test"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Data is the deep-link payload contract consumed by the UI router.
type Data struct {
	Type        string `json:"type"`
	DeepLink    string `json:"deepLink"`
	ServiceName string `json:"serviceName,omitempty"`
	StreamID    string `json:"streamId,omitempty"`
}

// Notification is the structured payload handed to the presenter.
type Notification struct {
	ID       string `json:"id"`
	Class    Class  `json:"class"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Data     Data   `json:"data"`
	Sound    bool   `json:"sound"`
	Priority string `json:"priority"`
}

// --------------------------------------------------------------------------
// Builders
// --------------------------------------------------------------------------

// LiveDetected builds the notification emitted when a probe finds the
// channel streaming. streamID is the oracle's opaque stream identifier.
func LiveDetected(streamID string) Notification {
	return Notification{
		ID:    uuid.NewString(),
		Class: ClassLiveDetected,
		Title: orgShortName + " is Live!",
		Body:  "Service is streaming now! Tap to watch.",
		Data: Data{
			Type:     TypeLiveStream,
			DeepLink: DeepLinkLive,
			StreamID: streamID,
		},
		Sound:    true,
		Priority: PriorityHigh,
	}
}

// ScheduledReminder builds the weekly reminder for a named service.
func ScheduledReminder(serviceName string) Notification {
	return Notification{
		ID:    uuid.NewString(),
		Class: ClassScheduledReminder,
		Title: serviceName + " Starting Now!",
		Body:  orgShortName + " is live. Tap to watch the service.",
		Data: Data{
			Type:        TypeScheduledService,
			DeepLink:    DeepLinkLive,
			ServiceName: serviceName,
		},
		Sound:    true,
		Priority: PriorityHigh,
	}
}

// Test builds a manually triggered test notification.
func Test() Notification {
	return Notification{
		ID:    uuid.NewString(),
		Class: ClassTest,
		Title: "Test Service Live!",
		Body:  orgShortName + " test notification. Tap to watch.",
		Data: Data{
			Type:     TypeTest,
			DeepLink: DeepLinkLive,
		},
		Sound:    true,
		Priority: PriorityHigh,
	}
}

// cooldownFor returns the minimum spacing between emissions of a class.
// Scheduled reminders are single-fire-per-trigger by construction (each
// timer fires once and is then re-armed a week out), so they carry no
// time-based cooldown.
func cooldownFor(class Class, liveCooldown time.Duration) time.Duration {
	switch class {
	case ClassLiveDetected:
		return liveCooldown
	default:
		return 0
	}
}
