package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"semkb/internal/domain"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage collections",
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := domain.ValidateCollectionName(name); err != nil {
			return err
		}
		st, err := openStore(GetConfig())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.CreateCollection(name); err != nil {
			return err
		}
		fmt.Printf("Created collection '%s'\n", name)
		return nil
	},
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(GetConfig())
		if err != nil {
			return err
		}
		defer st.Close()

		names, err := st.ListCollections()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No collections.")
			return nil
		}
		for _, name := range names {
			count, err := st.RecordCount(name)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%d records\n", name, count)
		}
		return nil
	},
}

var collectionDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a collection and all its records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(GetConfig())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteCollection(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted collection '%s'\n", args[0])
		return nil
	},
}

var collectionCountCmd = &cobra.Command{
	Use:   "count NAME",
	Short: "Show the number of records in a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(GetConfig())
		if err != nil {
			return err
		}
		defer st.Close()

		count, err := st.RecordCount(args[0])
		if err != nil {
			return err
		}
		fmt.Println(count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectionCmd)
	collectionCmd.AddCommand(collectionCreateCmd)
	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionDeleteCmd)
	collectionCmd.AddCommand(collectionCountCmd)
}
