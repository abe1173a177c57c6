package entities

type GPSFix struct {
	TimeElapsed int64    `json:"timeElapsed"`
	Timestamp   int64    `json:"timestamp"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Altitude    float64  `json:"altitude"`
	Speed       float64  `json:"speed"`
	Heading     *float64 `json:"heading"`
	Accuracy    float64  `json:"accuracy"`
	PDOP        float64  `json:"pdop"`
	HDOP        float64  `json:"hdop"`
	VDOP        float64  `json:"vdop"`
}

type GPSLocation struct {
	GPS      bool    `json:"gps"`
	Type     string  `json:"type"`
	Location *GPSFix `json:"location"`
}
