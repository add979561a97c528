package handlers

import "github.com/gin-gonic/gin"

// Routes groups the design lab handlers mounted under /api/v1/design-lab.
type Routes struct {
	Projects    *ProjectsHandler
	Versions    *VersionsHandler
	Layers      *LayersHandler
	Generations *GenerationsHandler
}

func (r Routes) Register(group *gin.RouterGroup) {
	group.POST("/projects", r.Projects.CreateProject)
	group.GET("/projects", r.Projects.ListProjects)
	group.GET("/projects/:project_id", r.Projects.GetProject)
	group.PATCH("/projects/:project_id", r.Projects.UpdateProject)
	group.DELETE("/projects/:project_id", r.Projects.ArchiveProject)

	group.GET("/projects/:project_id/versions", r.Versions.ListVersions)
	group.POST("/projects/:project_id/versions", r.Versions.CreateVersion)
	group.GET("/projects/:project_id/versions/:version_id", r.Versions.GetVersion)
	group.POST("/projects/:project_id/versions/:version_id/restore", r.Versions.RestoreVersion)

	group.GET("/projects/:project_id/versions/:version_id/layers", r.Layers.ListLayers)
	group.POST("/projects/:project_id/versions/:version_id/layers", r.Layers.CreateLayer)
	group.PATCH("/projects/:project_id/layers/:layer_id", r.Layers.UpdateLayer)
	group.DELETE("/projects/:project_id/layers/:layer_id", r.Layers.DeleteLayer)

	group.POST("/projects/:project_id/generations", r.Generations.StartGeneration)
	group.GET("/projects/:project_id/generations", r.Generations.ListGenerations)
	group.GET("/generations/:ref", r.Generations.GetGeneration)
	group.POST("/generations/:ref/cancel", r.Generations.CancelGeneration)
}
