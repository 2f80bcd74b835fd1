package provider

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"SceneMCP-Agent/internal/config"
	"SceneMCP-Agent/internal/scene"
	"SceneMCP-Agent/internal/scene/studio"
)

// Registry manages a set of scene backend clients keyed by human readable names.
type Registry struct {
	defaultBackend string
	clients        map[string]scene.Client
}

// NewRegistry loads backend definitions and instantiates concrete clients.
func NewRegistry(cfg config.SceneConfig) (*Registry, error) {
	defs, err := scene.LoadBackendDefinitions(cfg.BackendConfig)
	if err != nil {
		return nil, err
	}

	clients := make(map[string]scene.Client)
	for name, backend := range defs.Backends {
		backendType := strings.ToLower(strings.TrimSpace(backend.Type))
		if backendType == "" {
			backendType = "studio"
		}
		switch backendType {
		case "studio":
			client, err := studio.NewClient(studio.Config{
				Name:       name,
				BaseURL:    backend.BaseURL,
				HealthPath: backend.HealthPath,
				Timeout:    time.Duration(backend.TimeoutSeconds) * time.Second,
				Notes:      backend.Description,
			})
			if err != nil {
				return nil, fmt.Errorf("初始化场景后端 %s 失败: %w", name, err)
			}
			clients[name] = client
		default:
			return nil, fmt.Errorf("场景后端 %s 使用了不支持的类型 %s", name, backend.Type)
		}
	}

	if len(clients) == 0 && strings.TrimSpace(cfg.BaseURL) != "" {
		client, err := studio.NewClient(studio.Config{BaseURL: cfg.BaseURL})
		if err != nil {
			return nil, err
		}
		clients["default"] = client
		if cfg.DefaultBackend == "" {
			cfg.DefaultBackend = "default"
		}
	}

	if len(clients) == 0 {
		return nil, errors.New("未配置任何场景后端端点")
	}

	defaultBackend := cfg.DefaultBackend
	if defaultBackend == "" {
		names := make([]string, 0, len(clients))
		for name := range clients {
			names = append(names, name)
		}
		sort.Strings(names)
		defaultBackend = names[0]
	}
	if _, ok := clients[defaultBackend]; !ok {
		return nil, fmt.Errorf("默认场景后端 %s 未在配置中找到", defaultBackend)
	}

	return &Registry{defaultBackend: defaultBackend, clients: clients}, nil
}

// DefaultClient returns the client configured as default backend.
func (r *Registry) DefaultClient() (scene.Client, error) {
	if r == nil {
		return nil, errors.New("未初始化的场景后端注册表")
	}
	client, ok := r.clients[r.defaultBackend]
	if !ok {
		return nil, fmt.Errorf("默认场景后端 %s 未在注册表中", r.defaultBackend)
	}
	return client, nil
}

// Client returns the backend client identified by name.
func (r *Registry) Client(name string) (scene.Client, bool) {
	if r == nil {
		return nil, false
	}
	client, ok := r.clients[name]
	return client, ok
}

// Close releases all clients managed by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	for name, client := range r.clients {
		if client != nil {
			client.Close()
		}
		delete(r.clients, name)
	}
}

// Backends returns the list of registered backend names.
func (r *Registry) Backends() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
