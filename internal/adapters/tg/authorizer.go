package tg

import (
	"errors"
	"fmt"

	"github.com/zelenin/go-tdlib/client"
)

// errUnauthorized: TDLib попросил телефон/код, то есть сессия не авторизована
var errUnauthorized = errors.New("tdlib: session requires interactive authorization")

// sessionAuthorizer: неинтерактивный AuthorizationStateHandler.
// Передаёт параметры TDLib и ничего не вводит: любой запрос телефона,
// кода или пароля завершает открытие с errUnauthorized.
type sessionAuthorizer struct {
	params *client.SetTdlibParametersRequest

	// client запоминается, чтобы закрыть его, если NewClient вернул ошибку
	client *client.Client
}

func newSessionAuthorizer(params *client.SetTdlibParametersRequest) *sessionAuthorizer {
	return &sessionAuthorizer{params: params}
}

func (a *sessionAuthorizer) Handle(c *client.Client, state client.AuthorizationState) error {
	switch state.(type) {
	case *client.AuthorizationStateWaitTdlibParameters:
		_, err := c.SetTdlibParameters(a.params)
		return err

	case *client.AuthorizationStateWaitPhoneNumber,
		*client.AuthorizationStateWaitCode,
		*client.AuthorizationStateWaitPassword,
		*client.AuthorizationStateWaitRegistration,
		*client.AuthorizationStateWaitEmailAddress,
		*client.AuthorizationStateWaitEmailCode,
		*client.AuthorizationStateWaitOtherDeviceConfirmation,
		*client.AuthorizationStateLoggingOut:
		a.client = c
		return errUnauthorized

	case *client.AuthorizationStateReady,
		*client.AuthorizationStateClosing,
		*client.AuthorizationStateClosed:
		return nil
	}

	return fmt.Errorf("tdlib: unsupported authorization state %s", state.AuthorizationStateType())
}

func (a *sessionAuthorizer) Close() {}
