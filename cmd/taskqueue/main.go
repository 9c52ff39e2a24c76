package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

func main() {
	parser := flags.NewParser(nil, flags.Default)

	cmds := []struct {
		name  string
		short string
		long  string
		data  interface{}
	}{
		{"insert", docInsert, docInsertLong, &optsInsert{}},
		{"poll", docPoll, docPollLong, &optsPoll{}},
		{"list", docList, docList, &optsList{}},
		{"status", docStatus, docStatus, &optsStatus{}},
		{"purge", docPurge, docPurge, &optsPurge{}},
		{"migrate", docMigrate, docMigrateLong, &optsMigrate{}},
		{"inspect", docInspect, docInspect, &optsInspect{}},
		{"local", docLocal, docLocalLong, &optsLocal{}},
	}
	for _, c := range cmds {
		_, err := parser.AddCommand(c.name, c.short, c.long, c.data)
		if err != nil {
			log.Fatal().Err(err).Str("command", c.name).Msg("failed to add command")
		}
	}

	if _, err := parser.Parse(); err != nil {
		switch flagsErr := err.(type) {
		case *flags.Error:
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
			os.Exit(1)
		default:
			// already printed by the parser
			os.Exit(1)
		}
	}
}
