package cmd

import (
	"github.com/etnz/valutatrade"
	"github.com/etnz/valutatrade/provider"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion returns the shell completion of the vth command line.
func Completion() *complete.Command {
	currencies := predict.Set(valutatrade.CurrencyCodes())
	credentials := map[string]complete.Predictor{
		"username": predict.Something,
		"password": predict.Something,
	}
	operation := &complete.Command{Args: currencies}

	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"config":   predict.Files("*"),
			"data-dir": predict.Dirs("*"),
			"v":        predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"register":        {Flags: credentials},
			"login":           {Flags: credentials},
			"logout":          {},
			"whoami":          {},
			"change-password": {Flags: map[string]complete.Predictor{"old": predict.Something, "new": predict.Something}},
			"show-portfolio":  {Flags: map[string]complete.Predictor{"base": currencies}},
			"deposit":         operation,
			"buy":             operation,
			"sell":            operation,
			"get-rate":        {Args: currencies},
			"update-rates":    {Args: predict.Set(provider.Names)},
			"show-rates":      {Flags: map[string]complete.Predictor{"currency": currencies, "top": predict.Something}},
			"rates-history":   {Flags: map[string]complete.Predictor{"n": predict.Something}},
			"currencies":      {},
			"schedule":        {Flags: map[string]complete.Predictor{"every": predict.Set{"1m", "5m", "15m", "1h"}}},
			"shell":           {},
			"topic":           {Args: predict.Set(topicNames())},
			"help":            {},
		},
	}
}
