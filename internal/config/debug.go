package config

import "os"

func IsDebug() bool {
	return os.Getenv("PORTAL_DEBUG") == "1"
}
