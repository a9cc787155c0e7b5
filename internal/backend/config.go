package backend

import (
	"errors"
	"fmt"

	"gastos/internal/config"
	"gastos/internal/store/form"
	"gastos/internal/store/google"
)

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// file
	DataFile string

	// sqlite
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Sheets google.Config
	Form   form.Config
}

// FromAppConfig converts the application config to the config of the
// primary store.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	return fromAppConfig(appConfig, Type(appConfig.DataBackend))
}

// MirrorFromAppConfig builds the config of the store the worker mirrors
// SQLite rows into.
func MirrorFromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	t := Type(appConfig.MirrorBackend)
	if t == SQLiteBackend || t == MemoryBackend {
		return Config{}, fmt.Errorf("backend %s cannot be used as a mirror", t)
	}
	return fromAppConfig(appConfig, t)
}

func fromAppConfig(c *config.Config, t Type) (Config, error) {
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", t)
	}
	csvURL := c.SheetCSVURL
	if csvURL == "" && c.GoogleSpreadsheetID != "" {
		csvURL = form.ExportURL(c.GoogleSpreadsheetID)
	}
	return Config{
		Type: t,

		DataFile: c.DataFile,

		SQLiteDBPath: c.SQLiteDBPath,
		AMQPURL:      c.AMQPURL,
		AMQPExchange: c.AMQPExchange,
		AMQPQueue:    c.AMQPQueue,

		Sheets: google.Config{
			SpreadsheetID:   c.GoogleSpreadsheetID,
			SheetName:       c.GoogleSheetName,
			CredentialsJSON: c.GoogleCredentialsJSON,
			CredentialsFile: c.GoogleCredentialsFile,
			Timestamped:     c.GoogleSheetTimestamped,
		},
		Form: form.Config{
			FormID: c.FormID,
			Fields: form.FieldIDs{
				Date:        c.FormFieldDate,
				Category:    c.FormFieldCat,
				Description: c.FormFieldDesc,
				Amount:      c.FormFieldAmount,
				Payer:       c.FormFieldPayer,
				Payment:     c.FormFieldPay,
			},
			CSVURL: csvURL,
			Verify: c.FormVerify,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case FileBackend:
		if c.DataFile == "" {
			return errors.New("data file path is required for file backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
	case FormBackend:
		if c.Form.FormID == "" {
			return errors.New("form ID is required for form backend")
		}
		if c.Form.CSVURL == "" {
			return errors.New("a CSV export URL is required for form backend")
		}
	}
	return nil
}
