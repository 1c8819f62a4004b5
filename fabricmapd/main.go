/***
Copyright 2016 Cisco Systems Inc. All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"os"
	"sort"

	"github.com/gorilla/mux"
	"github.com/netforge/fabricmap/api"
	"github.com/netforge/fabricmap/core"
	"github.com/netforge/fabricmap/fabric"
	"github.com/netforge/fabricmap/mapper"
	"github.com/netforge/fabricmap/netres"
	"github.com/netforge/fabricmap/policy"
	"github.com/netforge/fabricmap/state"
	"github.com/netforge/fabricmap/utils/netutils"
	"github.com/netforge/fabricmap/version"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const binName = "fabricmapd"

type daemon struct {
	listenURL string
	router    *mux.Router
	tlsConfig *tls.Config
}

func initDaemon(ctx *cli.Context) (*daemon, error) {
	if ctx.Bool("debug") {
		logrus.SetLevel(logrus.DebugLevel)
	}

	storeURL := ctx.String("cluster-store")
	parsed, err := url.Parse(storeURL)
	if err != nil {
		return nil, core.Errorf("invalid cluster-store URL %q: %v", storeURL, err)
	}

	driverName := parsed.Scheme
	if driverName == "" {
		driverName = state.FakeName
	}
	driver, err := state.NewStateDriver(driverName, &core.InstanceInfo{DbURL: storeURL})
	if err != nil {
		return nil, err
	}
	logrus.Infof("using %s state store at %q", driverName, storeURL)

	var locks core.LockService
	if etcdDriver, ok := driver.(*state.EtcdStateDriver); ok {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, err
		}
		locks = state.NewEtcdLockService(etcdDriver, hostname)
	} else {
		locks = state.NewLocalLockService()
	}

	m := mapper.New(policy.NewMemDirectory(), netres.NewMemService(),
		fabric.NewStore(driver), locks, mapper.Config{
			AutoGroupEnabled:      ctx.Bool("auto-group"),
			DefaultPoolPrefix:     ctx.String("pool-prefix"),
			DefaultPrefixLength:   ctx.Int("prefix-length"),
			DefaultPoolPrefixV6:   ctx.String("pool-prefix-v6"),
			DefaultPrefixLengthV6: ctx.Int("prefix-length-v6"),
			DomainBindings:        ctx.StringSlice("domain-binding"),
		})

	router := mux.NewRouter()
	api.NewServer(m).RegisterRoutes(router)
	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(version.String()))
	}).Methods("GET")

	var tlsConfig *tls.Config
	if ctx.String("tls-cert") != "" {
		tlsConfig, err = netutils.GetTLSConfigFromCerts(ctx.String("tls-cert"),
			ctx.String("tls-key"), ctx.String("tls-cacert"))
		if err != nil {
			return nil, err
		}
	}

	return &daemon{
		listenURL: ctx.String("listen-url"),
		router:    router,
		tlsConfig: tlsConfig,
	}, nil
}

func (d *daemon) run() error {
	srv := &http.Server{
		Addr:      d.listenURL,
		Handler:   d.router,
		TLSConfig: d.tlsConfig,
	}
	if d.tlsConfig != nil {
		logrus.Infof("%s listening on %s with TLS", binName, d.listenURL)
		return srv.ListenAndServeTLS("", "")
	}
	logrus.Infof("%s listening on %s", binName, d.listenURL)
	return srv.ListenAndServe()
}

func main() {
	app := cli.NewApp()
	app.Name = binName
	app.Version = "\n" + version.String()
	app.Usage = "policy to fabric mapping service"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "listen-url",
			Value:  "0.0.0.0:9779",
			EnvVar: "FABRICMAP_LISTEN_URL",
			Usage:  "address to serve the API on",
		},
		cli.StringFlag{
			Name:   "cluster-store",
			Value:  "etcd://127.0.0.1:2379",
			EnvVar: "FABRICMAP_CLUSTER_STORE",
			Usage:  "state store URL, etcd:// or consul://",
		},
		cli.BoolFlag{
			Name:   "auto-group",
			EnvVar: "FABRICMAP_AUTO_GROUP",
			Usage:  "synthesize a default endpoint group per bridging domain",
		},
		cli.StringFlag{
			Name:   "pool-prefix",
			Value:  "10.128.0.0/12",
			EnvVar: "FABRICMAP_POOL_PREFIX",
			Usage:  "prefix seeding implicitly allocated subnet pools",
		},
		cli.IntFlag{
			Name:   "prefix-length",
			Value:  24,
			EnvVar: "FABRICMAP_PREFIX_LENGTH",
			Usage:  "subnet size carved from implicit pools",
		},
		cli.StringFlag{
			Name:   "pool-prefix-v6",
			Value:  "fd10::/48",
			EnvVar: "FABRICMAP_POOL_PREFIX_V6",
			Usage:  "prefix seeding implicitly allocated v6 subnet pools",
		},
		cli.IntFlag{
			Name:   "prefix-length-v6",
			Value:  64,
			EnvVar: "FABRICMAP_PREFIX_LENGTH_V6",
			Usage:  "subnet size carved from implicit v6 pools",
		},
		cli.StringFlag{
			Name:   "tls-cert",
			EnvVar: "FABRICMAP_TLS_CERT",
			Usage:  "server certificate, enables TLS when set",
		},
		cli.StringFlag{
			Name:   "tls-key",
			EnvVar: "FABRICMAP_TLS_KEY",
			Usage:  "server private key",
		},
		cli.StringFlag{
			Name:   "tls-cacert",
			EnvVar: "FABRICMAP_TLS_CACERT",
			Usage:  "CA bundle for verifying client certificates",
		},
		cli.StringSliceFlag{
			Name:   "domain-binding",
			EnvVar: "FABRICMAP_DOMAIN_BINDING",
			Usage:  "deployment domain to bind fabric groups to, repeatable",
		},
		cli.BoolFlag{
			Name:   "debug",
			EnvVar: "FABRICMAP_DEBUG",
			Usage:  "enable debug logging",
		},
	}
	sort.Sort(cli.FlagsByName(app.Flags))
	app.Action = func(ctx *cli.Context) error {
		d, err := initDaemon(ctx)
		if err != nil {
			logrus.Error(err.Error())
			return cli.NewExitError(err.Error(), 22)
		}
		if err := d.run(); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		return nil
	}
	app.Run(os.Args)
}
