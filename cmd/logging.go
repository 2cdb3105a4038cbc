package cmd

import (
	"strings"

	"github.com/emprendyup/ms-go-reconciler/config"
	"github.com/sirupsen/logrus"
)

func configureLogging(cfg *config.Config) error {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Log.Level))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	return nil
}
