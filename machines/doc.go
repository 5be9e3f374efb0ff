/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package machines is the catalog of conduit processes.
//
// The Session ("app") process lives as long as the client and spawns
// the Auth process.  Feed, Article, Profile, Editor, Settings, and
// Tags processes are made per page view with their parameters.
//
// None of these processes perform IO.  They emit core.Request
// Effects for API calls and the Effects in this package for
// navigation, token persistence, and notifications.  See package sio
// for a host that performs them.
package machines
