package grpcclient

import "time"

// Client configuration defaults
const (
	ServiceName       = "crumbot.vision.v1.OCR"
	ExtractTextMethod = "/" + ServiceName + "/ExtractText"

	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second
	DefaultCallTimeout      = 2 * time.Second
	HealthCheckTimeout      = 2 * time.Second
)
