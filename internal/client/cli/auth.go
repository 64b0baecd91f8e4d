package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/netguard/internal/client/client"
	"github.com/dmitrijs2005/netguard/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials and signs in against the server. The
// session is cached locally so the next start resumes it.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	if err := a.authService.Login(ctx, userName, password); err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			a.setMode(ModeOffline)
		}
		printlnFn("Login unsuccessful:", err.Error())
		return err
	}

	a.setUserName(userName)
	a.setMode(ModeOnline)
	printlnFn("Login successful")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		printlnFn("Logout failed:", err.Error())
		return err
	}
	a.setUserName("")
	printlnFn("Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	userName, err := a.authService.WhoAmI(ctx)
	if err != nil {
		return err
	}
	if userName == "" {
		printlnFn("Not logged in")
		return nil
	}
	printlnFn(fmt.Sprintf("%s @ %s", userName, a.config.ServerEndpointAddr))
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	if err := a.authService.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		printlnFn("Server unreachable:", err.Error())
		return err
	}
	a.setMode(ModeOnline)
	printlnFn("pong")
	return nil
}
