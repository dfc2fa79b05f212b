package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stratumdb/stratum/pkg/log"
	"github.com/stratumdb/stratum/pkg/store"
)

var (
	flagPath      string
	flagEngine    string
	flagLogLevel  string
	flagPartition string
)

func openStore(create ...string) (*store.Store, error) {
	return store.Open(flagPath, store.Options{
		Engine: store.EngineKind(flagEngine),
	}, create...)
}

func openStringMap(s *store.Store) (*store.Map[string, string], error) {
	return store.OpenMap[string, string](s, flagPartition, store.StringKey{}, store.StringValue{})
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "stratum",
		Short: "Inspect and manipulate a stratum store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLogLevel(flagLogLevel)
			if err != nil {
				return fmt.Errorf("parse log level: %w", err)
			}
			log.Init(log.Options{LogLevel: level, Type: log.ConsoleLogger})
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&flagPath, "path", "", "store directory")
	rootCmd.PersistentFlags().StringVar(&flagEngine, "engine", "pebble", "engine kind (pebble|bolt)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level")
	_ = rootCmd.MarkPersistentFlagRequired("path")

	partitionsCmd := &cobra.Command{
		Use:   "partitions",
		Short: "List logical partitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			for _, name := range s.Partitions() {
				fmt.Println(name)
			}
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Read the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			m, err := openStringMap(s)
			if err != nil {
				return err
			}
			val, ok, err := m.Get(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key %q not found", args[0])
			}
			fmt.Println(val)
			return nil
		},
	}

	putCmd := &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store a value under a key, creating the partition if needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(flagPartition)
			if err != nil {
				return err
			}
			defer s.Close()
			m, err := openStringMap(s)
			if err != nil {
				return err
			}
			return m.Insert(args[0], args[1])
		},
	}

	delCmd := &cobra.Command{
		Use:   "del <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			m, err := openStringMap(s)
			if err != nil {
				return err
			}
			return m.Remove(args[0])
		},
	}

	var (
		flagStart   string
		flagEnd     string
		flagReverse bool
		flagLimit   int
	)
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan keys in order, optionally bounded",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			m, err := openStringMap(s)
			if err != nil {
				return err
			}

			var lower, upper *string
			if cmd.Flags().Changed("start") {
				lower = &flagStart
			}
			if cmd.Flags().Changed("end") {
				upper = &flagEnd
			}

			var iter *store.SafeIter[string, string]
			if flagReverse {
				iter, err = m.ReversedSafeIterWithBounds(lower, upper)
			} else {
				iter, err = m.SafeIterWithBounds(lower, upper)
			}
			if err != nil {
				return err
			}
			defer iter.Close()

			n := 0
			for iter.Next() {
				if flagLimit > 0 && n >= flagLimit {
					break
				}
				k, _, err := iter.Key()
				if err != nil {
					return err
				}
				v, _, err := iter.Value()
				if err != nil {
					return err
				}
				fmt.Printf("%s\t%s\n", k, v)
				n++
			}
			return iter.Err()
		},
	}
	scanCmd.Flags().StringVar(&flagStart, "start", "", "inclusive lower bound")
	scanCmd.Flags().StringVar(&flagEnd, "end", "", "exclusive upper bound")
	scanCmd.Flags().BoolVar(&flagReverse, "reverse", false, "scan in descending order")
	scanCmd.Flags().IntVar(&flagLimit, "limit", 0, "maximum entries to print (0 = all)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry in a partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			m, err := openStringMap(s)
			if err != nil {
				return err
			}
			return m.UnsafeClear()
		},
	}

	checkpointCmd := &cobra.Command{
		Use:   "checkpoint <dest>",
		Short: "Write a consistent point-in-time copy of the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Checkpoint(args[0])
		},
	}

	digestCmd := &cobra.Command{
		Use:   "digest",
		Short: "Print the BLAKE2b-256 content digest of a partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			sum, err := s.PartitionDigest(flagPartition)
			if err != nil {
				return err
			}
			fmt.Println(hex.EncodeToString(sum[:]))
			return nil
		},
	}

	for _, cmd := range []*cobra.Command{getCmd, putCmd, delCmd, scanCmd, clearCmd, digestCmd} {
		cmd.Flags().StringVarP(&flagPartition, "partition", "p", "default", "partition name")
	}

	rootCmd.AddCommand(partitionsCmd, getCmd, putCmd, delCmd, scanCmd, clearCmd, checkpointCmd, digestCmd)

	if err := rootCmd.Execute(); err != nil {
		log.CLI.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
