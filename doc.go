// Package objtrack is an object lifetime validation layer for a Vulkan-style
// API. It sits between an application and the next layer (usually the
// driver), records every dispatchable and non-dispatchable object the
// application creates, and reports use-after-free, double destroy,
// premature parent destruction and leaks.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	objtrack/            Root package with Open and version information
//	├── vk/              Handles, results and the static command table
//	├── errors/          Structured error types for debugging
//	├── registry/        Object registry with tombstones and parent links
//	├── router/          Instance and device state blocks, handle to scope routing
//	├── validation/      Pure checks over a registry view
//	├── chain/           Interceptor chain and per-call report
//	├── tracker/         The object_tracker interceptor
//	├── calllog/         The call_log interceptor
//	├── diag/            Violations, sinks and the CBOR violation log
//	├── driver/          Next-layer resolution (mock and native)
//	├── config/          Settings from YAML and environment
//	├── layer/           The dispatch layer tying it all together
//	├── replay/          YAML call scripts replayed against a mock driver
//	└── cmd/objtrack/    Command line front end
//
// # Quick Start
//
// Wrap a driver and forward calls through the layer:
//
//	l, err := objtrack.Open("", mock.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Close()
//
//	create := vk.NewCall("vkCreateInstance")
//	if res := l.Call(ctx, create); res != vk.Success {
//	    log.Fatal(res)
//	}
//
// # Per-call Flow
//
// Every call is routed to the state block of its dispatch handle, then runs
// the interceptor passes under the layer guard:
//
//  1. PreValidate on every interceptor; any may request a skip
//  2. PreRecord, unless skipped
//  3. The next layer, outside the guard
//  4. PostRecord, only when the next layer returned success
//
// Violations collected along the way are delivered to the configured sinks
// after the guard is released.
//
// # Configuration
//
// Settings come from an optional YAML file overlaid with OBJTRACK_*
// environment variables. See the config package.
package objtrack
