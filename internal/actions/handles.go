package actions

import "github.com/shaiso/dockflow/internal/docker"

// Handle ресурса создаётся на каждый вызов и не кешируется:
// клиент общий, handle — только привязка к идентификатору.

// Container возвращает handle контейнера из запроса.
func (c *Call) Container() docker.ContainerHandle {
	return c.Client.Container(c.Request.ResourceID)
}

// Volume возвращает handle volume из запроса.
func (c *Call) Volume() docker.VolumeHandle {
	return c.Client.Volume(c.Request.ResourceID)
}

// Config возвращает handle config из запроса.
func (c *Call) Config() docker.ConfigHandle {
	return c.Client.Config(c.Request.ResourceID)
}

// Options возвращает параметры запроса.
func (c *Call) Options() map[string]any {
	return c.Request.Options
}
