package shutterdeck

import (
	"github.com/shutterdeck/go-client-sdk/api"
	"github.com/shutterdeck/go-client-sdk/util"
)

type ErrorResponse = api.ErrorResponse
type Envelope = api.Envelope
type ClientEvent = api.ClientEvent
type ClientEventType = api.ClientEventType
type UserProfile = api.UserProfile
type Credentials = api.Credentials
type AuthResponse = api.AuthResponse
type PlatformData = api.PlatformData
type Logger = util.Logger
type DiscardLogger = util.DiscardLogger

func SetLogger(log Logger) { util.SetLogger(log) }
