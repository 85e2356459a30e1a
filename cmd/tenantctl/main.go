package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"shopgate/internal/tenancy"
	"shopgate/internal/tenantid"
	"shopgate/pkg/config"
)

func main() {
	if err := newRootCmd(config.Load(), os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	secret        string
	defaultSchema string
	prefix        string
}

func newRootCmd(cfg config.Config, out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "tenantctl",
		Short:        "Issue and inspect shopgate tenant identifiers",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVar(&opts.secret, "secret", cfg.TenantSecret, "tenant signing secret (defaults to TENANT_SECRET)")
	root.PersistentFlags().StringVar(&opts.defaultSchema, "default-schema", cfg.DefaultSchema, "schema of the default tenant")
	root.PersistentFlags().StringVar(&opts.prefix, "schema-prefix", cfg.TenantSchemaPrefix, "prefix of tenant schemas")

	root.AddCommand(newGenerateCmd(opts), newVerifyCmd(opts), newSchemaCmd(opts))
	return root
}

func (o *options) codec() (*tenantid.Codec, error) {
	return tenantid.NewCodec(o.secret)
}

func (o *options) schemas() tenancy.SchemaRouter {
	return tenancy.NewSchemaRouter(o.defaultSchema, o.prefix)
}

func newGenerateCmd(opts *options) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate new tenant identifiers with their schema names",
		Long: `Generate prints one new identifier per line followed by the schema the
provisioning workflow must create for it. The identifier is also the tenant's
OAuth2 client id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("count must be positive")
			}
			codec, err := opts.codec()
			if err != nil {
				return err
			}
			router := opts.schemas()
			for i := 0; i < count; i++ {
				id, err := codec.Generate()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, router.SchemaFor(id))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of identifiers to generate")
	return cmd
}

func newVerifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <identifier>...",
		Short: "Verify tenant identifiers against the signing secret",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := opts.codec()
			if err != nil {
				return err
			}
			invalid := 0
			for _, a := range args {
				if err := codec.Verify(a); err != nil {
					invalid++
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tinvalid\n", a)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tok\n", a)
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d identifiers are invalid", invalid, len(args))
			}
			return nil
		},
	}
}

func newSchemaCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <identifier>",
		Short: "Print the schema a tenant identifier routes to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := tenantid.Default
			if args[0] != string(tenantid.Default) {
				codec, err := opts.codec()
				if err != nil {
					return err
				}
				if id, err = codec.Parse(args[0]); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), opts.schemas().SchemaFor(id))
			return nil
		},
	}
}
