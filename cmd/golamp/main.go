package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/2x3systems/golamp/golamp"
	"github.com/plan-systems/klog"
)

func main() {
	fset := flag.NewFlagSet("", flag.ContinueOnError)
	klog.InitFlags(fset)
	fset.Set("logtostderr", "true")
	fset.Set("v", "1")
	klog.SetFormatter(&klog.FmtConstWidth{
		FileNameCharWidth: 16,
		UseColor:          true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	catCtx := golamp.NewCatalogContext()

	root := newRootCmd(catCtx)
	root.PersistentFlags().AddGoFlagSet(fset)
	err := root.ExecuteContext(ctx)
	stop()

	// Catalogs left open by an interrupted command are closed here
	catCtx.Close()
	<-catCtx.Done()

	klog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
