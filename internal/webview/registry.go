package webview

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed integrations.yaml
var builtinIntegrations []byte

// Registry: неизменяемый после старта набор интеграций
type Registry struct {
	byKey map[string]domain.IntegrationDescriptor
}

// NewRegistry собирает реестр из встроенного файла и, если задан,
// файла overridePath: записи с тем же key заменяют встроенные.
func NewRegistry(overridePath string) (*Registry, error) {
	r := &Registry{byKey: map[string]domain.IntegrationDescriptor{}}

	if err := r.add(builtinIntegrations); err != nil {
		return nil, fmt.Errorf("builtin integrations: %w", err)
	}

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", overridePath, err)
		}
		if err := r.add(data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", overridePath, err)
		}
	}

	return r, nil
}

func (r *Registry) add(data []byte) error {
	var list []domain.IntegrationDescriptor
	if err := yaml.Unmarshal(data, &list); err != nil {
		return err
	}
	for _, d := range list {
		if err := validate(d); err != nil {
			return err
		}
		r.byKey[d.Key] = d
	}
	return nil
}

func validate(d domain.IntegrationDescriptor) error {
	if d.Key == "" || d.Bot == "" {
		return fmt.Errorf("integration %q: key and bot are required", d.Key)
	}
	switch d.Kind {
	case domain.HandshakeBotMenu:
		if d.EntryURL == "" {
			return fmt.Errorf("integration %q: entry_url is required for %s", d.Key, d.Kind)
		}
	case domain.HandshakeShortNameApp:
		if d.ShortName == "" {
			return fmt.Errorf("integration %q: short_name is required for %s", d.Key, d.Kind)
		}
	default:
		return fmt.Errorf("integration %q: unknown kind %q", d.Key, d.Kind)
	}
	return nil
}

// Lookup возвращает дескриптор или локальную ошибку валидации с именем ключа
func (r *Registry) Lookup(key string) (domain.IntegrationDescriptor, error) {
	d, ok := r.byKey[key]
	if !ok {
		return domain.IntegrationDescriptor{}, &domain.UnknownError{
			Status: 400,
			Detail: fmt.Sprintf("Service '%s' not found in service map", key),
		}
	}
	return d, nil
}

func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
