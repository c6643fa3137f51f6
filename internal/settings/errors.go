package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/intrepidcs/libicsneo-sub002/internal/events"
)

// ErrorType represents the category of a settings failure
type ErrorType int

const (
	// ErrTypeVersion indicates the device reported an unsupported envelope version
	ErrTypeVersion ErrorType = iota
	// ErrTypeLength indicates the envelope length did not match the payload or structure size
	ErrTypeLength
	// ErrTypeChecksum indicates the envelope checksum did not match the payload
	ErrTypeChecksum
	// ErrTypeRead indicates no usable settings reply arrived
	ErrTypeRead
	// ErrTypeNotAvailable indicates settings have not been loaded or are disabled
	ErrTypeNotAvailable
	// ErrTypeReadOnly indicates a write was attempted on read-only settings
	ErrTypeReadOnly
	// ErrTypeNoResponse indicates a write was not acknowledged and the device could not be re-read
	ErrTypeNoResponse
	// ErrTypeWrite indicates a write was not acknowledged but the device is reachable and in sync
	ErrTypeWrite
	// ErrTypeBaudrate indicates a baud rate outside the supported table
	ErrTypeBaudrate
	// ErrTypeNetwork indicates the layout has no sub-structure for the requested network
	ErrTypeNetwork
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeVersion:
		return "Settings Version Error"
	case ErrTypeLength:
		return "Settings Length Error"
	case ErrTypeChecksum:
		return "Settings Checksum Error"
	case ErrTypeRead:
		return "Settings Read Error"
	case ErrTypeNotAvailable:
		return "Settings Not Available"
	case ErrTypeReadOnly:
		return "Settings Read Only"
	case ErrTypeNoResponse:
		return "No Device Response"
	case ErrTypeWrite:
		return "Settings Write Error"
	case ErrTypeBaudrate:
		return "Baudrate Not Found"
	case ErrTypeNetwork:
		return "Network Settings Not Available"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Event returns the event type reported alongside errors of this type.
func (et ErrorType) Event() events.Type {
	switch et {
	case ErrTypeVersion:
		return events.SettingsVersionError
	case ErrTypeLength:
		return events.SettingsLengthError
	case ErrTypeChecksum:
		return events.SettingsChecksumError
	case ErrTypeRead:
		return events.SettingsReadError
	case ErrTypeReadOnly:
		return events.SettingsReadOnly
	case ErrTypeNoResponse:
		return events.NoDeviceResponse
	case ErrTypeWrite:
		return events.FailedToWrite
	case ErrTypeBaudrate:
		return events.BaudrateNotFound
	case ErrTypeNetwork:
		return events.CANSettingsNotAvailable
	default:
		return events.SettingsNotAvailable
	}
}

// Error is a settings operation failure
type Error struct {
	Type    ErrorType // Category of error
	Message string    // Human-readable error message
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(t ErrorType, err error, format string, args ...any) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Err: err}
}

func typeOf(err error) (ErrorType, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}

func isType(err error, types ...ErrorType) bool {
	t, ok := typeOf(err)
	if !ok {
		return false
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

// IsReadError checks if an error came from a failed or invalid settings read
func IsReadError(err error) bool {
	return isType(err, ErrTypeRead, ErrTypeVersion, ErrTypeLength, ErrTypeChecksum)
}

// IsChecksumError checks if an error is a checksum mismatch
func IsChecksumError(err error) bool {
	return isType(err, ErrTypeChecksum)
}

// IsNoResponse checks if the device stopped answering during a write
func IsNoResponse(err error) bool {
	return isType(err, ErrTypeNoResponse)
}

// IsWriteError checks if a write was refused while the device stayed reachable
func IsWriteError(err error) bool {
	return isType(err, ErrTypeWrite)
}

// IsReadOnly checks if an error is a rejected write to read-only settings
func IsReadOnly(err error) bool {
	return isType(err, ErrTypeReadOnly)
}

// IsNotAvailable checks if settings or the requested sub-structure are unavailable
func IsNotAvailable(err error) bool {
	return isType(err, ErrTypeNotAvailable, ErrTypeNetwork)
}

// IsBaudrateError checks if an error is an unsupported baud rate
func IsBaudrateError(err error) bool {
	return isType(err, ErrTypeBaudrate)
}

// GetTroubleshootingHint returns user-facing advice for a settings error
func GetTroubleshootingHint(err error) string {
	t, ok := typeOf(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch t {
	case ErrTypeVersion:
		return strings.Join([]string{
			"The device uses a settings format this tool does not support.",
			"Troubleshooting:",
			"  • Update the device firmware",
		}, "\n")

	case ErrTypeLength:
		return strings.Join([]string{
			"The settings structure size does not match the configured layout.",
			"Troubleshooting:",
			"  • Check settings.struct_size in your profile",
			"  • Confirm the profile matches the connected device family",
		}, "\n")

	case ErrTypeChecksum, ErrTypeRead:
		return strings.Join([]string{
			"Settings could not be read reliably.",
			"Troubleshooting:",
			"  • Check the cable and port",
			"  • Retry the read",
		}, "\n")

	case ErrTypeNoResponse:
		return strings.Join([]string{
			"The device stopped responding while settings were written.",
			"Troubleshooting:",
			"  • Power cycle the device and read the settings again",
			"  • Check the transport connection",
		}, "\n")

	case ErrTypeWrite:
		return "The device refused the new settings. Local state was reloaded from the device."

	case ErrTypeBaudrate:
		return "The requested baud rate is not supported. Run 'icsneo settings show' for the supported list."

	default:
		return "An error occurred. Please check the error message for details."
	}
}
