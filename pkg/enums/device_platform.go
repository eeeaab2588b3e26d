package enums

// DevicePlatform identifies where a push token was issued.
type DevicePlatform string

const (
	DevicePlatformWeb     DevicePlatform = "web"
	DevicePlatformIOS     DevicePlatform = "ios"
	DevicePlatformAndroid DevicePlatform = "android"
)

var devicePlatforms = values[DevicePlatform]{DevicePlatformWeb, DevicePlatformIOS, DevicePlatformAndroid}

func (d DevicePlatform) IsValid() bool { return devicePlatforms.has(d) }

func ParseDevicePlatform(value string) (DevicePlatform, error) {
	return devicePlatforms.parse(value, "device platform")
}
