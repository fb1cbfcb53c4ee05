package main

import (
	"fmt"
	"sync"

	"github.com/cwsl/lora_pyramid/iq_extensions/lora"
)

// IQExtensionInfo contains metadata about a registered extension
type IQExtensionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// IQExtensionRegistry manages available IQ extension types
type IQExtensionRegistry struct {
	factories map[string]lora.IQExtensionFactory
	info      map[string]IQExtensionInfo
	mu        sync.RWMutex
}

// NewIQExtensionRegistry creates a new IQ extension registry
func NewIQExtensionRegistry() *IQExtensionRegistry {
	return &IQExtensionRegistry{
		factories: make(map[string]lora.IQExtensionFactory),
		info:      make(map[string]IQExtensionInfo),
	}
}

// Register registers a new IQ extension type
func (ier *IQExtensionRegistry) Register(name string, factory lora.IQExtensionFactory, info IQExtensionInfo) {
	ier.mu.Lock()
	defer ier.mu.Unlock()

	ier.factories[name] = factory
	ier.info[name] = info
}

// Create creates a new IQ extension instance
func (ier *IQExtensionRegistry) Create(name string, iqParams lora.IQExtensionParams, extensionParams map[string]interface{}) (lora.IQExtension, error) {
	ier.mu.RLock()
	factory, exists := ier.factories[name]
	ier.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("IQ extension not found: %s", name)
	}

	return factory(iqParams, extensionParams)
}

// List returns information about all registered IQ extensions
func (ier *IQExtensionRegistry) List() []IQExtensionInfo {
	ier.mu.RLock()
	defer ier.mu.RUnlock()

	list := make([]IQExtensionInfo, 0, len(ier.info))
	for _, info := range ier.info {
		list = append(list, info)
	}

	return list
}

// Exists checks if an IQ extension is registered
func (ier *IQExtensionRegistry) Exists(name string) bool {
	ier.mu.RLock()
	defer ier.mu.RUnlock()

	_, exists := ier.factories[name]
	return exists
}

// registerBuiltinExtensions registers the extensions compiled into this binary
func registerBuiltinExtensions(registry *IQExtensionRegistry) {
	info := lora.GetInfo()
	registry.Register("lora", lora.Factory, IQExtensionInfo{
		Name:        info["name"].(string),
		Description: info["description"].(string),
		Version:     info["version"].(string),
	})
}
