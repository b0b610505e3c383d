package backend

import (
	"fmt"

	"rendita/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          backendType,
		DataDirectory: appConfig.DataDir,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		MongoURI:      appConfig.MongoURI,
		MongoDatabase: appConfig.MongoDatabase,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// SheetsConfig returns the configuration of the Google Sheets mirror target,
// independent of the primary backend selection.
func SheetsConfig(appConfig *config.Config) Config {
	return Config{
		Type:                     SheetsBackend,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MongoBackend:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("MongoDB URI and database are required for mongo backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// DataDirectory is optional; without it the store starts empty
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, MongoBackend, SheetsBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
