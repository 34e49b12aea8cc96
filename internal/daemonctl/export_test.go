package daemonctl

import (
	"context"
	"time"
)

func (s *Supervisor) SetSelfPath(fn func() (string, error)) { s.selfPath = fn }

func (s *Supervisor) SetLauncher(fn func(path string, args []string) error) { s.launch = fn }

func (s *Supervisor) SetSleep(fn func(ctx context.Context, d time.Duration) error) { s.sleep = fn }

var LaunchDetached = launchDetached
