package cmd

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cwarden/timegrid/internal/remind"
	"github.com/cwarden/timegrid/internal/source/api"
	"github.com/cwarden/timegrid/internal/source/composite"
	"github.com/cwarden/timegrid/internal/source/ics"
)

// buildSource combines every configured source. It also returns the
// local files worth watching for changes.
func buildSource(log *zap.Logger) (*composite.Source, []string, error) {
	src := composite.New(log)
	var watched []string

	if cfg.APIURL != "" {
		client, err := api.New(api.Options{
			BaseURL:  cfg.APIURL,
			Token:    cfg.APIToken,
			Rate:     cfg.APIRate,
			Location: time.Local,
			Logger:   log,
		})
		if err != nil {
			return nil, nil, err
		}
		src.Add("api", client)
	}

	if len(cfg.ICSFiles) > 0 {
		cals := ics.New(cfg.ICSFiles, ics.Options{Location: time.Local, Logger: log})
		src.Add("ics", cals)
		watched = append(watched, cals.Files()...)
	}

	if len(cfg.RemindFiles) > 0 {
		rem := remind.New(cfg.RemindFiles, remind.Options{
			Command:  cfg.RemindCommand,
			Location: time.Local,
			Logger:   log,
		})
		src.Add("remind", rem)
		watched = append(watched, rem.Files()...)
	}

	if src.Len() == 0 {
		return nil, nil, errors.New("no sources configured: set remind_files, ics_files or api_url, or pass --file")
	}
	return src, watched, nil
}
