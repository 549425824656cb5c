// Command panaya runs the storefront API and its maintenance tasks.
//
//	panaya serve                 # HTTP + gRPC health, workers and scheduler
//	panaya route:list
//	panaya migrate               # migrate:rollback, migrate:status
//	panaya seed
//	panaya queue:work -w 4       # workers for QUEUE_DRIVER=redis
//	panaya schedule:run
//	panaya orders:reconcile --repair
//	panaya orders:export --format xlsx --status pending --output orders.xlsx
//
// Configuration comes from config/app.json, .env and the environment.
package main
