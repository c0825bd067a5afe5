package worker

import (
	"github.com/pluginhost/validatorctl/internal/envelope"
	"github.com/pluginhost/validatorctl/internal/logging"
	"github.com/pluginhost/validatorctl/internal/validator"
)

// resolvedLocator is the outcome of resolving one PLUGIN child: either a
// plain locator string or a decoded descriptor blob, never both.
type resolvedLocator struct {
	FileOrID   string
	Descriptor []byte
}

func (l resolvedLocator) toValidatorLocator() validator.Locator {
	return validator.Locator{FileOrID: l.FileOrID, Descriptor: l.Descriptor}
}

// resolveLocator implements §4.4 step 2's locator determination: fileOrID
// if present, else a decoded pluginDescription. ok is false only when
// neither a usable fileOrID nor a decodable descriptor is present (the
// empty-descriptor-child open question, decided: skip silently).
func resolveLocator(child envelope.PluginRef) (resolvedLocator, bool) {
	if child.FileOrID != "" {
		return resolvedLocator{FileOrID: child.FileOrID}, true
	}
	if len(child.PluginDescriptor) > 0 {
		return resolvedLocator{Descriptor: child.PluginDescriptor}, true
	}
	return resolvedLocator{}, false
}

// identify asks v for a descriptor's identifier when v supports it,
// falling back to a fixed placeholder otherwise.
func identify(v validator.Validator, descriptor []byte) string {
	if idv, ok := v.(validator.Identifier); ok {
		id, err := idv.Identify(descriptor)
		if err == nil && id != "" {
			return id
		}
		logging.Warnf("worker: descriptor identification failed: %v", err)
	}
	return "descriptor"
}
