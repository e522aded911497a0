// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"errors"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Rayka-RJ/raydb"
)

func dbPath(cmd *cobra.Command) (string, error) {
	return cmd.Flags().GetString("db")
}

func openDB(cmd *cobra.Command) (*raydb.DB, error) {
	path, err := dbPath(cmd)
	if err != nil {
		return nil, err
	}
	return raydb.Open(path, nil)
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "print the value for key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			txn, err := db.Begin()
			if err != nil {
				return err
			}
			defer txn.Rollback()

			value, err := txn.Get([]byte(args[0]))
			if errors.Is(err, raydb.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "(not found)")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(value))
			return nil
		},
	}
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "set key to value, committing immediately",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			txn, err := db.Begin()
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(args[0]), []byte(args[1])); err != nil {
				_ = txn.Rollback()
				return err
			}
			return txn.Commit()
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "delete key, committing immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			txn, err := db.Begin()
			if err != nil {
				return err
			}
			if err := txn.Delete([]byte(args[0])); err != nil {
				_ = txn.Rollback()
				return err
			}
			return txn.Commit()
		},
	}
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <prefix>",
		Short: "print every key/value pair starting with prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			txn, err := db.Begin()
			if err != nil {
				return err
			}
			defer txn.Rollback()

			results, err := txn.ScanPrefix([]byte(args[0]))
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"key", "value"})
			for _, kv := range results {
				table.Append([]string{string(kv.Key), string(kv.Value)})
			}
			table.Render()
			return nil
		},
	}
}

func newCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "rewrite the log file to contain only live records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Compact()
		},
	}
}
