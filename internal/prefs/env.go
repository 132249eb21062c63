package prefs

import "os"

// osEnv is the production Env, backed by the real process environment.
type osEnv struct{}

// OSEnv returns the production Env implementation.
func OSEnv() Env { return osEnv{} }

func (osEnv) Lookup(key string) (string, bool) { return os.LookupEnv(key) }
