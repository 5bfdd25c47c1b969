package utils

import (
	"strings"
	"time"
)

// Application Constants
const (
	AppName    = "Lifeline"
	AppVersion = "1.0.0"

	// Authentication
	JWTAccessTokenTTL  = 24 * time.Hour
	JWTRefreshTokenTTL = 7 * 24 * time.Hour

	// Incident Constants
	MaxPinAttempts        = 5
	AudioUploadTimeout    = 30 * time.Second
	MaxAudioChunkSize     = 1 * 1024 * 1024 // 1MB per streamed chunk
	NotificationTimeout   = 30 * time.Second
	ContactCacheTTL       = 5 * time.Minute
	DefaultEmergencyPhone = "911"
)

// Response Status
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrValidationFailed = "Validation failed"
	ErrInternalServer   = "Internal server error"
	ErrUnauthorized     = "Unauthorized access"
	ErrForbidden        = "Access forbidden"
)

// Context Keys
const (
	ContextUserID   = "user_id"
	ContextUserType = "user_type"
)

// User Types
const (
	UserTypeRider = "rider"
	UserTypeAgent = "agent"
	UserTypeAdmin = "admin"
)

// emergencyNumbers maps ISO 3166-1 alpha-2 country codes to the national
// emergency number dialled at LEVEL_3 and LEVEL_4.
var emergencyNumbers = map[string]string{
	"US": "911",
	"CA": "911",
	"MX": "911",
	"BR": "190",
	"GB": "999",
	"IE": "999",
	"FR": "112",
	"DE": "112",
	"ES": "112",
	"IT": "112",
	"NL": "112",
	"PT": "112",
	"NG": "112",
	"GH": "112",
	"KE": "999",
	"ZA": "10111",
	"EG": "122",
	"IN": "112",
	"PK": "15",
	"BD": "999",
	"CN": "110",
	"JP": "110",
	"KR": "112",
	"PH": "911",
	"ID": "110",
	"AU": "000",
	"NZ": "111",
	"AE": "999",
	"SA": "999",
}

// EmergencyNumberForCountry resolves a country code to its emergency number,
// defaulting to 911 when the country is unknown or missing.
func EmergencyNumberForCountry(countryCode string) string {
	if number, ok := emergencyNumbers[strings.ToUpper(countryCode)]; ok {
		return number
	}
	return DefaultEmergencyPhone
}
