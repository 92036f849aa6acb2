package main

import "github.com/podbrief/podbrief-api/cmd"

// @title           PodBrief API
// @version         1.0.0
// @description     Episode transcript and AI summary generation API with streamed delivery
// @contact.name    API Support
// @contact.url     https://github.com/podbrief/podbrief-api
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @schemes         http https
func main() {
	cmd.Execute()
}
