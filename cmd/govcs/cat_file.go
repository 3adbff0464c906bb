package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/vcsforge/govcs"
	"github.com/vcsforge/govcs/ginternals"
	"github.com/vcsforge/govcs/ginternals/object"
)

var errBadFile = errors.New("bad file")

type catFileParams struct {
	typeOnly    bool
	sizeOnly    bool
	prettyPrint bool
	objectName  string
}

func newCatFileCmd(cfg *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat-file OBJECT",
		Short: "print the content, type, or size of a repository object",
		Args:  cobra.ExactArgs(1),
	}

	typeOnly := cmd.Flags().BoolP("t", "t", false, "Show the object type identified by <object>.")
	sizeOnly := cmd.Flags().BoolP("s", "s", false, "Show the object size identified by <object>.")
	prettyPrint := cmd.Flags().BoolP("p", "p", false, "Pretty-print the contents of <object> based on its type.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, err := workDir(cfg)
		if err != nil {
			return err
		}
		return catFileCmd(cmd.OutOrStdout(), dir, catFileParams{
			typeOnly:    *typeOnly,
			sizeOnly:    *sizeOnly,
			prettyPrint: *prettyPrint,
			objectName:  args[0],
		})
	}
	return cmd
}

func catFileCmd(out io.Writer, dir string, p catFileParams) error {
	switch {
	case p.typeOnly && p.sizeOnly:
		return errors.New("option -s not supported with option -t")
	case p.typeOnly && p.prettyPrint:
		return errors.New("option -p not supported with option -t")
	case p.sizeOnly && p.prettyPrint:
		return errors.New("option -p not supported with option -s")
	case !p.typeOnly && !p.sizeOnly && !p.prettyPrint:
		return errors.New("one of -t, -s, -p is required")
	}

	r, err := govcs.OpenRepository(dir, govcs.Options{})
	if err != nil {
		return err
	}
	defer r.Close() //nolint:errcheck // nothing actionable to do with a close error here

	oid, err := resolveObjectName(r, p.objectName)
	if err != nil {
		return err
	}

	o, err := r.Object(oid)
	if err != nil {
		return err
	}

	switch {
	case p.sizeOnly:
		fmt.Fprintln(out, strconv.Itoa(len(o.Bytes())))
	case p.typeOnly:
		fmt.Fprintln(out, o.Type().String())
	case p.prettyPrint:
		return prettyPrintObject(out, o)
	}
	return nil
}

// resolveObjectName turns a hex id or a ref name into the oid it
// identifies, trying the name as-is then as a full ref, a local
// branch, and a local tag.
func resolveObjectName(r *govcs.Repository, name string) (ginternals.Oid, error) {
	if oid, err := ginternals.NewOidFromStr(name); err == nil {
		return oid, nil
	}

	candidates := []string{
		name,
		ginternals.RefFullName(name),
		ginternals.LocalBranchFullName(name),
		ginternals.LocalTagFullName(name),
	}
	for _, refName := range candidates {
		ref, err := r.Reference(refName)
		if err == nil {
			return ref.Target(), nil
		}
		if !errors.Is(err, ginternals.ErrRefNotFound) {
			return ginternals.NullOid, xerrors.Errorf("could not check if ref %s exists: %w", refName, err)
		}
	}

	return ginternals.NullOid, xerrors.Errorf("not a valid object name %s", name)
}

func prettyPrintObject(out io.Writer, o *object.Object) error {
	switch o.Type() {
	case object.TypeCommit:
		c, err := o.AsCommit()
		if err != nil {
			return xerrors.Errorf("could not read commit: %w", err)
		}
		fmt.Fprintf(out, "tree %s\n", c.TreeID().String())
		for _, id := range c.ParentIDs() {
			fmt.Fprintf(out, "parent %s\n", id.String())
		}
		fmt.Fprintf(out, "author %s\n", c.Author().String())
		fmt.Fprintf(out, "committer %s\n", c.Committer().String())
		if c.GPGSig() != "" {
			fmt.Fprintf(out, "gpgsig %s\n", c.GPGSig())
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, c.Message())
	case object.TypeTree:
		t, err := o.AsTree()
		if err != nil {
			return xerrors.Errorf("could not read tree: %w", err)
		}
		for _, e := range t.Entries() {
			fmt.Fprintf(out, "%06o %s %s\t%s\n", e.Mode, e.Mode.ObjectType().String(), e.ID.String(), e.Path)
		}
	case object.TypeBlob:
		fmt.Fprint(out, string(o.Bytes()))
	case object.TypeTag:
		t, err := o.AsTag()
		if err != nil {
			return xerrors.Errorf("could not read tag: %w", err)
		}
		fmt.Fprintf(out, "object %s\n", t.Target().String())
		fmt.Fprintf(out, "type %s\n", t.Type().String())
		fmt.Fprintf(out, "tag %s\n", t.Name())
		fmt.Fprintf(out, "tagger %s\n", t.Tagger().String())
		if t.GPGSig() != "" {
			fmt.Fprintf(out, "gpgsig %s\n", t.GPGSig())
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, t.Message())
	default:
		return xerrors.Errorf("%s: %w", o.Type().String(), errBadFile)
	}
	return nil
}
