package entities

type TrafficSample struct {
	WANID   string `json:"wanId"`
	Name    string `json:"name"`
	RxBytes int64  `json:"rxBytes"`
	TxBytes int64  `json:"txBytes"`
	RxRate  int64  `json:"rxRate"`
	TxRate  int64  `json:"txRate"`
	Unit    string `json:"unit"`
}

type TrafficSamples []TrafficSample
