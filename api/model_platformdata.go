package api

import (
	"fmt"
	"os"
	"runtime"
)

// PlatformData identifies the client to the backend; it is sent on every
// request as part of the User-Agent.
type PlatformData struct {
	SdkType         string `json:"sdkType"`
	SdkVersion      string `json:"sdkVersion"`
	PlatformVersion string `json:"platformVersion"`
	Platform        string `json:"platform"`
	OS              string `json:"os"`
	Hostname        string `json:"hostname"`
}

func (pd *PlatformData) Default(sdkVersion string) *PlatformData {
	pd.Platform = "Go"
	pd.SdkType = "client"
	pd.PlatformVersion = runtime.Version()
	pd.OS = runtime.GOOS + "/" + runtime.GOARCH
	pd.Hostname, _ = os.Hostname()
	pd.SdkVersion = sdkVersion
	return pd
}

func (pd PlatformData) UserAgent(product string) string {
	return fmt.Sprintf("%s/%s (%s %s; %s)", product, pd.SdkVersion, pd.Platform, pd.PlatformVersion, pd.OS)
}
