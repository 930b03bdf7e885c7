package wizard

import "errors"

// Validation errors for the interactive wizard.
var (
	errAddressRequired    = errors.New("device address is required")
	errAddressInvalid     = errors.New("device address must be a host name or IP address without spaces")
	errDuplicateAddress   = errors.New("both devices have the same address")
	errUsernameRequired   = errors.New("username is required")
	errPasswordRequired   = errors.New("password is required")
	errSourceRequired     = errors.New("image source is required")
	errDestinationInvalid = errors.New("destination must be a plain file name")
	errRateLimitInvalid   = errors.New("rate limit must be a byte size such as 10MB or 512KiB")
	errReclaimNameInvalid = errors.New("file names must not contain slashes or spaces")
)
