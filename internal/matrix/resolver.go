// Package matrix expands a nested, human-written browsers mapping into a flat list of
// fully-qualified browser definitions.
package matrix

import (
	"errors"

	"go.uber.org/zap"

	"github.com/shehryarbajwa/browsermatrix/internal/catalog"
	"github.com/shehryarbajwa/browsermatrix/internal/guess"
	"github.com/shehryarbajwa/browsermatrix/internal/normalize"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// Resolver turns a Config into browser definitions
type Resolver struct {
	norm   *normalize.Normalizer
	guess  *guess.Guesser
	logger *zap.Logger
}

// NewResolver creates a resolver over the given tables. A nil logger discards warnings.
func NewResolver(tables *catalog.Tables, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		norm:   normalize.New(tables),
		guess:  guess.New(tables),
		logger: logger,
	}
}

// Resolve expands every entry of cfg. Any unresolvable field fails the whole call; the
// returned error joins one *ConfigurationError per problem.
func (r *Resolver) Resolve(cfg Config) ([]models.BrowserDefinition, error) {
	var (
		defs []models.BrowserDefinition
		errs []error
	)
	collect := func(d []models.BrowserDefinition, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		defs = append(defs, d...)
	}

	for _, entry := range cfg.Entries {
		switch entry.Kind {
		case KindSingle:
			collect(r.expand(entry.DisplayName, entry.Fields, entry.Devices))
		case KindMulti:
			for _, v := range entry.Versions {
				displayName := entry.DisplayName + " " + v.Key
				switch v.Kind {
				case VersionPlaceholder:
					r.logger.Warn("No browser available for version slot, skipping",
						zap.String("browser", displayName))
				case VersionScalar:
					fields := entry.Fields
					fields.Version = v.Fields.Version
					collect(r.expand(displayName, fields, entry.Devices))
				case VersionObject:
					devices := v.Devices
					if devices == nil {
						devices = entry.Devices
					}
					collect(r.expand(displayName, v.Fields.inherit(entry.Fields), devices))
				}
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return defs, nil
}

// expand produces one definition, or one per device model when models are listed
func (r *Resolver) expand(displayName string, fields Fields, devices []any) ([]models.BrowserDefinition, error) {
	if len(devices) == 0 {
		def, err := r.complete(displayName, fields)
		if err != nil {
			return nil, err
		}
		return []models.BrowserDefinition{def}, nil
	}

	base, hasBase := normalize.DeviceName(fields.Device)
	defs := make([]models.BrowserDefinition, 0, len(devices))
	var errs []error
	for _, model := range devices {
		name, ok := normalize.DeviceName(model)
		if !ok {
			errs = append(errs, configErr(displayName, "devices", "device model must not be empty"))
			continue
		}
		f := fields
		f.Device = name
		if hasBase {
			f.Device = base + " " + name
		}
		def, err := r.complete(displayName+" "+name, f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		defs = append(defs, def)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return defs, nil
}

// complete normalizes explicit fields and guesses the rest. The four checks are
// independent so every missing field is reported.
func (r *Resolver) complete(displayName string, f Fields) (models.BrowserDefinition, error) {
	browser, ok := r.norm.BrowserName(f.Name)
	if !ok {
		if raw, given := normalize.Token(f.Name); given {
			return models.BrowserDefinition{}, configErr(displayName, "name", "unknown browser name %q", raw)
		}
		return models.BrowserDefinition{}, configErr(displayName, "name", "browser name must be defined")
	}

	var errs []error
	version, hasVersion := normalize.Version(f.Version)

	os, hasOS := r.norm.OSName(f.OS)
	if !hasOS {
		r.warnUnrecognized(displayName, "os", f.OS)
		os, hasOS = r.guess.OSName(browser)
		if !hasOS {
			errs = append(errs, configErr(displayName, "os", "OS name must be defined"))
		}
	}

	osVersion, hasOSVersion := r.norm.OSVersion(f.OSVersion, os)
	if !hasOSVersion {
		r.warnUnrecognized(displayName, "osVersion", f.OSVersion)
		osVersion, hasOSVersion = r.guess.OSVersion(os, browser, version)
		if !hasOSVersion {
			errs = append(errs, configErr(displayName, "osVersion", "OS version must be defined"))
		}
	}

	if variant, ok := r.guess.MobileVariant(browser, os); ok {
		browser = variant
	}

	device, hasDevice := normalize.DeviceName(f.Device)
	if r.guess.DeviceRequired(os) {
		if !hasDevice {
			device, hasDevice = r.guess.DeviceName(os, browser)
			if !hasDevice {
				errs = append(errs, configErr(displayName, "device", "device name must be defined"))
			}
		}
	} else if hasDevice {
		r.logger.Debug("Dropping device for an OS without devices",
			zap.String("browser", displayName), zap.String("device", device), zap.String("os", os))
		device = ""
	}

	if !hasVersion {
		version, hasVersion = r.guess.BrowserVersion(os, osVersion, browser)
		if !hasVersion {
			errs = append(errs, configErr(displayName, "version", "browser version must be defined"))
		}
	}

	if len(errs) > 0 {
		return models.BrowserDefinition{}, errors.Join(errs...)
	}
	return models.BrowserDefinition{
		DisplayName: displayName,
		Name:        browser,
		Version:     version,
		OS:          os,
		OSVersion:   osVersion,
		Device:      device,
	}, nil
}

// warnUnrecognized logs a field that was set but did not normalize, before it gets guessed
func (r *Resolver) warnUnrecognized(displayName, field string, raw any) {
	if value, given := normalize.Token(raw); given {
		r.logger.Warn("Unrecognized value, guessing instead",
			zap.String("browser", displayName), zap.String("field", field), zap.String("value", value))
	}
}
