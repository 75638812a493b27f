package tg

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/tidwall/gjson"
)

// call выполняет блокирующий вызов TDLib в отдельной горутине и отпускает
// вызывающего по ctx. Брошенный вызов дочитывается в фоне, клиент закрывает Close.
func call[T any](ctx context.Context, op domain.RemoteOp, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v: v, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return r.v, remoteError(op, r.err)
		}
		return r.v, nil
	}
}

// remoteError превращает ошибку TDLib вида "400 USERNAME_OCCUPIED" в domain.RemoteError
func remoteError(op domain.RemoteOp, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var re *domain.RemoteError
	if errors.As(err, &re) {
		return err
	}

	code, message := splitTDLibError(err.Error())
	return &domain.RemoteError{Op: op, Code: code, Err: errors.New(message)}
}

func splitTDLibError(text string) (int, string) {
	head, tail, ok := strings.Cut(text, " ")
	if !ok {
		return 0, text
	}
	code, err := strconv.Atoi(head)
	if err != nil {
		return 0, text
	}
	return code, tail
}

// responseError разбирает объект error из ответа client.Send
func responseError(op domain.RemoteOp, data []byte) error {
	return &domain.RemoteError{
		Op:   op,
		Code: int(gjson.GetBytes(data, "code").Int()),
		Err:  errors.New(gjson.GetBytes(data, "message").String()),
	}
}
