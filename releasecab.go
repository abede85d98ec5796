package main

import (
	"bytes"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wansing/releasecab/backend"
	"github.com/wansing/releasecab/core"
	"github.com/wansing/releasecab/seed"
	"github.com/wansing/releasecab/sqldb"
	"github.com/wansing/releasecab/util"
	"github.com/xo/dburl"
	"golang.org/x/term"
)

const defaultDB = "sqlite3:releasecab.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&cache=shared"

func init() {
	log.SetFlags(0) // no log prefixes, on most systems systemd-journald adds them
}

// isSet returns whether the flag has been given on the command line.
func isSet(fs *flag.FlagSet, name string) bool {
	var found = false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func main() {

	var dbArg string     // is in both FlagSets
	var configArg string // is in both FlagSets

	// default FlagSet

	// Your reverse proxy must not strip the prefix. So if you're using nginx, the "proxy_pass" value should not end with a slash.
	var base = flag.String("base", "", "strip off this `prefix` from every HTTP request and prepend it to redirect locations")
	flag.StringVar(&configArg, "config", "", "read defaults from this INI `file`")
	// MySQL: collation should be utf8mb4_unicode_ci, DSN needs parseTime=true
	flag.StringVar(&dbArg, "db", defaultDB, "sql database url, see github.com/xo/dburl")
	var listenAddr = flag.String("listen", "127.0.0.1:8080", "serve HTTP content at this `ip:port`")

	// init FlagSet

	var initFlags = flag.NewFlagSet("init", flag.ExitOnError)

	initFlags.StringVar(&configArg, "config", "", "read defaults from this INI `file`")
	initFlags.StringVar(&dbArg, "db", defaultDB, "sql database url, see github.com/xo/dburl")
	var initInsert = initFlags.Bool("insert", false, "creates the given tenant or user")
	var initGrant = initFlags.Bool("grant", false, "grants the given role to the given user")
	var initJoin = initFlags.Bool("join", false, "joins the given user to the given team")
	var initManager = initFlags.Bool("manager", false, "with -join: the user becomes a team manager")
	var initOwner = initFlags.Bool("owner", false, "with -insert: the user becomes a tenant owner")
	var initSeed = initFlags.String("seed", "", "loads a workflow from this YAML `file`")
	var tenantname = initFlags.String("tenant", "", "specifies a tenant `name`")
	var rolename = initFlags.String("role", "", "specifies a role `name`")
	var teamname = initFlags.String("team", "", "specifies a team `name`")
	var username = initFlags.String("user", "", "specifies a user `email`")

	var flags = flag.CommandLine
	if len(os.Args) > 1 && os.Args[1] == "init" {
		initFlags.Parse(os.Args[2:])
		flags = initFlags
	} else {
		flag.Parse()
	}

	// config file, explicit flags win

	conf, err := util.LoadConfig(configArg)
	if err != nil {
		log.Printf("could not load config file: %v", err)
		return
	}
	if conf.DatabaseURL != "" && !isSet(flags, "db") {
		dbArg = conf.DatabaseURL
	}
	if conf.Listen != "" && !isSet(flags, "listen") {
		*listenAddr = conf.Listen
	}
	if conf.Base != "" && !isSet(flags, "base") {
		*base = conf.Base
	}

	// database

	dbURL, err := dburl.Parse(dbArg)
	if err != nil {
		log.Printf("could not parse database url: %v", err)
		return
	}

	dialect, err := sqldb.ParseDialect(dbURL.Driver)
	if err != nil {
		log.Println(err)
		return
	}

	sqlDB, err := sql.Open(dbURL.Driver, dbURL.DSN)
	if err != nil {
		log.Printf("could not open sql database: %v", err)
		return
	}

	defer func() {
		log.Println("closing database")
		sqlDB.Close()
	}()

	if err = sqlDB.Ping(); err != nil {
		log.Printf("could not ping sql database: %v", err)
		return
	}

	log.Printf("using database %s", dbURL.Redacted())

	*base = util.NormalizeBase(*base)

	// assemble stuff

	var db *core.CoreDB
	if err := catch(func() {
		db = sqldb.Open(sqlDB, dialect)
		db.Init(sqldb.NewSessionStore(sqlDB, dialect), *base, core.SessionConfig{
			IdleTimeout: conf.SessionIdleTimeout,
			Lifetime:    conf.SessionLifetime,
		})
	}); err != nil {
		log.Printf("could not set up database: %v", err) // log.Fatalln would not run deferred functions
		return
	}

	// init

	if initFlags.Parsed() {
		switch {
		case *initSeed != "":
			loadSeed(db, *initSeed)
		case *initInsert:
			if *tenantname != "" && *username == "" {
				insertTenant(db, *tenantname)
			}
			if *tenantname != "" && *username != "" {
				insertUser(db, *tenantname, *username, *initOwner)
			}
		case *initGrant:
			if *tenantname != "" && *username != "" && *rolename != "" {
				grant(db, *tenantname, *username, *rolename)
			}
		case *initJoin:
			if *tenantname != "" && *username != "" && *teamname != "" {
				join(db, *tenantname, *username, *teamname, *initManager)
			}
		default:
			initFlags.Usage()
		}
		db.WaitNotifications()
		return
	}

	listen(db, *listenAddr, *base)
}

// catch recovers from the panics of the sqldb constructors.
func catch(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	f()
	return nil
}

func loadSeed(db *core.CoreDB, filename string) {
	tenant, err := seed.LoadFile(db, filename)
	if err != nil {
		log.Printf("error loading workflow: %v", err)
		return
	}
	log.Printf("loaded workflow of tenant %s", tenant.Name)
}

func insertTenant(db *core.CoreDB, name string) {
	if _, err := db.InsertTenant(name); err != nil {
		log.Printf(`error creating tenant "%s": %v`, name, err)
	}
}

func getTenantUser(db *core.CoreDB, tenantname, username string) (*core.Tenant, core.DBUser, error) {

	tenant, err := db.GetTenantByName(tenantname)
	if err != nil {
		return nil, nil, fmt.Errorf("getting tenant %s: %w", tenantname, err)
	}

	user, err := db.GetUserByName(username)
	if err != nil {
		return nil, nil, fmt.Errorf("getting user %s: %w", username, err)
	}

	if user.TenantID() != tenant.ID {
		return nil, nil, fmt.Errorf("user %s is not in tenant %s", username, tenantname)
	}

	return tenant, user, nil
}

func insertUser(db *core.CoreDB, tenantname, name string, owner bool) {

	tenant, err := db.GetTenantByName(tenantname)
	if err != nil {
		log.Printf("error getting tenant %s: %v", tenantname, err)
		return
	}

	fmt.Printf("password for user %s: ", name)
	pass1, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		log.Printf("error reading password: %v", err)
		return
	}

	fmt.Printf("repeat password: ")
	pass2, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		log.Printf("error reading password: %v", err)
		return
	}

	if !bytes.Equal(pass1, pass2) {
		log.Printf("passwords don't match")
		return
	}

	user, err := db.InsertUser(tenant.ID, name, owner)
	if err != nil {
		log.Printf("error creating user %s: %v", name, err)
		return
	}

	if err := db.SetPassword(user, string(pass1)); err != nil {
		log.Printf("error setting password: %v", err)
		return
	}
}

func grant(db *core.CoreDB, tenantname, username, rolename string) {

	tenant, user, err := getTenantUser(db, tenantname, username)
	if err != nil {
		log.Println(err)
		return
	}

	role, err := db.GetRoleByName(tenant.ID, rolename)
	if err != nil {
		log.Printf("error getting role %s: %v", rolename, err)
		return
	}

	if err := db.GrantRole(user, role.ID); err != nil {
		log.Printf("error granting role: %v", err)
		return
	}
}

func join(db *core.CoreDB, tenantname, username, teamname string, manager bool) {

	tenant, user, err := getTenantUser(db, tenantname, username)
	if err != nil {
		log.Println(err)
		return
	}

	team, err := db.GetTeamByName(tenant.ID, teamname)
	if err != nil {
		log.Printf("error getting team %s: %v", teamname, err)
		return
	}

	if err := db.JoinTeam(user, team.ID, manager); err != nil {
		log.Printf("error joining: %v", err)
		return
	}
}

func listen(db *core.CoreDB, addr string, base string) {

	// golang mux recovers from panics, so the program won't crash

	var waitingRequests sync.WaitGroup

	var mux = http.NewServeMux()
	util.HandlePrefix(mux, base+"/api", backend.NewBackendRouter(db))
	mux.Handle(base+"/metrics", promhttp.Handler())

	// listener and listen

	sigintChannel := make(chan os.Signal, 1)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Println(err)
		return
	}

	log.Printf("listening to %s", addr)

	var handler = db.SessionManager.LoadAndSave(mux)

	httpSrv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			waitingRequests.Add(1)
			defer waitingRequests.Done()
			handler.ServeHTTP(w, req)
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil {

			// don't panic, we want a graceful shutdown
			if err != http.ErrServerClosed {
				log.Printf("error listening: %v", err)
			}

			// ensure graceful shutdown
			sigintChannel <- os.Interrupt
		}
	}()

	// graceful shutdown

	signal.Notify(sigintChannel, os.Interrupt, syscall.SIGTERM) // SIGINT (Interrupt) or SIGTERM
	<-sigintChannel

	log.Println("shutting down")
	httpSrv.Close()

	waitingRequests.Wait()
	db.WaitNotifications()
}
